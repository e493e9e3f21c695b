package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
	"github.com/estatehub/marketplace/backend/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db *sqlx.DB
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := observability.GetLogger()

	// Test the connection with retry
	retryConfig := retry.DefaultConfig("PostgreSQL")
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).
			Msg("PostgreSQL connection attempt failed, retrying")
	}
	err = retry.Do(context.Background(), retryConfig, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Successfully connected to PostgreSQL")
	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing connection pool
func NewClientFromDB(db *sqlx.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying database connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
