package config_test

import (
	"testing"
	"time"

	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "meditrack_inventory", cfg.Database.Database)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// Behavioral parity: threshold defaults to 50 units, expiry window to 30 days.
	assert.Equal(t, 50, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 30, cfg.Inventory.ExpiryWindowDays)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MEDITRACK_SERVER_PORT", "9090")
	t.Setenv("MEDITRACK_INVENTORY_LOW_STOCK_THRESHOLD", "25")

	cfg, err := config.Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Inventory.LowStockThreshold)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "meditrack",
		Password: "secret",
		Database: "meditrack_inventory",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Equal(t, "host=db.internal port=5433 user=meditrack password=secret dbname=meditrack_inventory sslmode=require", dsn)
}

func TestDatabaseConfig_DSN_URLTakesPrecedence(t *testing.T) {
	cfg := config.DatabaseConfig{
		URL:  "postgres://app:pw@prod-db:6432/inventory?sslmode=verify-full",
		Host: "ignored",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=prod-db")
	assert.Contains(t, dsn, "port=6432")
	assert.Contains(t, dsn, "sslmode=verify-full")
}

func TestDatabaseConfig_Validate(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost"}

	assert.NoError(t, cfg.Validate(config.EnvDevelopment))
	assert.Error(t, cfg.Validate(config.EnvProduction))

	cfg.Host = "db.prod.internal"
	assert.NoError(t, cfg.Validate(config.EnvProduction))
}

func TestLoadWithValidation_RejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("MEDITRACK_SERVER_ENVIRONMENT", "production")
	t.Setenv("MEDITRACK_DATABASE_HOST", "db.prod.internal")

	_, err := config.LoadWithValidation("inventory-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDITRACK_JWT_SECRET")
}
