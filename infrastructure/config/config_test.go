package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightdocs-backend/infrastructure/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 5, cfg.CheckpointThreshold)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("CHECKPOINT_THRESHOLD", "10")
	t.Setenv("SERVER_ADDRESS", ":9000")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 10, cfg.CheckpointThreshold)
	assert.Equal(t, ":9000", cfg.ServerAddress)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "cassandra")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestProductionRequiresSecretStorageAndAccessFile(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := config.LoadConfig()
	assert.Error(t, err, "production without JWT_SECRET must fail")

	t.Setenv("JWT_SECRET", "secret")
	_, err = config.LoadConfig()
	assert.Error(t, err, "production without ACCESS_FILE must fail")

	t.Setenv("ACCESS_FILE", "/etc/insightdocs/access.json")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/etc/insightdocs/access.json", cfg.AccessFile)

	t.Setenv("STORAGE_DRIVER", "memory")
	_, err = config.LoadConfig()
	assert.Error(t, err, "production must not run on the in-memory store")
}
