package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("MARKETPLACE_CONFIG_FILE")
	os.Unsetenv("OFFER_TTL")
	os.Unsetenv("BOOST_WEIGHT_VIEWS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.App.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.Marketplace.OfferTTL)
	assert.Equal(t, 72*time.Hour, cfg.Marketplace.CounterOfferTTL)
	assert.Equal(t, 60, cfg.Marketplace.DefaultTourMinutes)
	assert.Equal(t, 15*time.Minute, cfg.Marketplace.BoostInterval)
	assert.Equal(t, 1.0, cfg.Marketplace.BoostWeights.Views)
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OFFER_TTL", "48h")
	t.Setenv("BOOST_WEIGHT_VIEWS", "0.5")
	t.Setenv("DEFAULT_TOUR_MINUTES", "30")
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Marketplace.OfferTTL)
	assert.Equal(t, 0.5, cfg.Marketplace.BoostWeights.Views)
	assert.Equal(t, 30, cfg.Marketplace.DefaultTourMinutes)
	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("COUNTER_OFFER_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cfg.Marketplace.CounterOfferTTL)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.yaml")
	content := `
marketplace:
  counter_offer_ttl: 24h
  boost_interval: 5m
  boost_weights:
    favorites: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MARKETPLACE_CONFIG_FILE", path)
	t.Setenv("BOOST_WEIGHT_OFFERS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Marketplace.CounterOfferTTL)
	assert.Equal(t, 5*time.Minute, cfg.Marketplace.BoostInterval)
	assert.Equal(t, 4.0, cfg.Marketplace.BoostWeights.Favorites)
	// untouched keys keep their environment values
	assert.Equal(t, 6.0, cfg.Marketplace.BoostWeights.Offers)
	assert.Equal(t, 7*24*time.Hour, cfg.Marketplace.OfferTTL)
}

func TestLoad_RejectsNegativeWeights(t *testing.T) {
	t.Setenv("BOOST_WEIGHT_FAVORITES", "-1")

	_, err := Load()
	assert.EqualError(t, err, "boost weights must not be negative")
}

func TestLoad_MissingOverlayFile(t *testing.T) {
	t.Setenv("MARKETPLACE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "secret", Database: "marketplace", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=marketplace sslmode=require", db.DatabaseDSN())
}
