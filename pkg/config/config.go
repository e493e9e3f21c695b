package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	OTEL        OTELConfig
	Marketplace MarketplaceConfig
}

// AppConfig holds process-level settings
type AppConfig struct {
	Env         string
	StoreDriver string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// BoostWeights are the coefficients of the boost score
type BoostWeights struct {
	Views     float64 `yaml:"views"`
	Favorites float64 `yaml:"favorites"`
	Offers    float64 `yaml:"offers"`
	Bookings  float64 `yaml:"bookings"`
}

// MarketplaceConfig holds the engine policies
type MarketplaceConfig struct {
	OfferTTL           time.Duration `yaml:"offer_ttl"`
	CounterOfferTTL    time.Duration `yaml:"counter_offer_ttl"`
	DefaultTourMinutes int           `yaml:"default_tour_minutes"`
	MaxTourMinutes     int           `yaml:"max_tour_minutes"`
	BoostInterval      time.Duration `yaml:"boost_interval"`
	BoostWindow        time.Duration `yaml:"boost_window"`
	BoostWeights       BoostWeights  `yaml:"boost_weights"`
	OfferSweepInterval time.Duration `yaml:"offer_sweep_interval"`
	ViewTimeout        time.Duration `yaml:"view_timeout"`
}

// Load loads configuration from environment variables, then applies the
// optional YAML overlay named by MARKETPLACE_CONFIG_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "marketplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "marketplace-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Marketplace: MarketplaceConfig{
			OfferTTL:           getEnvAsDuration("OFFER_TTL", 7*24*time.Hour),
			CounterOfferTTL:    getEnvAsDuration("COUNTER_OFFER_TTL", 72*time.Hour),
			DefaultTourMinutes: getEnvAsInt("DEFAULT_TOUR_MINUTES", 60),
			MaxTourMinutes:     getEnvAsInt("MAX_TOUR_MINUTES", 240),
			BoostInterval:      getEnvAsDuration("BOOST_RECOMPUTE_INTERVAL", 15*time.Minute),
			BoostWindow:        getEnvAsDuration("BOOST_ACTIVITY_WINDOW", 7*24*time.Hour),
			BoostWeights: BoostWeights{
				Views:     getEnvAsFloat("BOOST_WEIGHT_VIEWS", 1.0),
				Favorites: getEnvAsFloat("BOOST_WEIGHT_FAVORITES", 2.0),
				Offers:    getEnvAsFloat("BOOST_WEIGHT_OFFERS", 3.0),
				Bookings:  getEnvAsFloat("BOOST_WEIGHT_BOOKINGS", 1.5),
			},
			OfferSweepInterval: getEnvAsDuration("OFFER_SWEEP_INTERVAL", 5*time.Minute),
			ViewTimeout:        getEnvAsDuration("VIEW_RECORD_TIMEOUT", 5*time.Second),
		},
	}

	if path := os.Getenv("MARKETPLACE_CONFIG_FILE"); path != "" {
		if err := cfg.applyMarketplaceFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Marketplace.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyMarketplaceFile overlays the marketplace section from a YAML file.
// Keys missing from the file keep their environment values.
func (c *Config) applyMarketplaceFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read marketplace config %s: %w", path, err)
	}

	var file struct {
		Marketplace *MarketplaceConfig `yaml:"marketplace"`
	}
	file.Marketplace = &c.Marketplace
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse marketplace config %s: %w", path, err)
	}
	return nil
}

// Validate checks the engine policies
func (m *MarketplaceConfig) Validate() error {
	switch {
	case m.OfferTTL <= 0:
		return fmt.Errorf("offer_ttl must be positive")
	case m.CounterOfferTTL <= 0:
		return fmt.Errorf("counter_offer_ttl must be positive")
	case m.DefaultTourMinutes <= 0:
		return fmt.Errorf("default_tour_minutes must be positive")
	case m.MaxTourMinutes < m.DefaultTourMinutes:
		return fmt.Errorf("max_tour_minutes must be at least default_tour_minutes")
	case m.BoostInterval <= 0:
		return fmt.Errorf("boost_interval must be positive")
	case m.BoostWindow <= 0:
		return fmt.Errorf("boost_window must be positive")
	case m.BoostWeights.Views < 0 || m.BoostWeights.Favorites < 0 || m.BoostWeights.Offers < 0 || m.BoostWeights.Bookings < 0:
		return fmt.Errorf("boost weights must not be negative")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
