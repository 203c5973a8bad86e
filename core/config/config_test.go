package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv registers cleanup for keys a .env file in the test may set.
func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t, "SERVER_PORT", "DATABASE_DRIVER", "THINGS_ENABLED", "STORAGE_BUCKET")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ShutdownTimeoutSeconds)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "collection_mapper", cfg.Database.Name)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "collections", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Things.Enabled)
	assert.True(t, cfg.Things.AutoMigrate)
	assert.Equal(t, "things/source.json", cfg.Things.SourceObject)
	assert.Equal(t, "things/reports", cfg.Things.ReportPrefix)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t, "SERVER_PORT", "DATABASE_DRIVER", "DATABASE_NAME", "THINGS_ENABLED", "THINGS_AUTO_MIGRATE")

	dir := t.TempDir()
	env := "SERVER_PORT=9090\nDATABASE_DRIVER=sqlite\nDATABASE_NAME=:memory:\nTHINGS_AUTO_MIGRATE=false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Name)
	assert.True(t, cfg.Things.Enabled)
	assert.False(t, cfg.Things.AutoMigrate)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port", "SERVER_PORT", "http", "invalid server port"},
		{"driver", "DATABASE_DRIVER", "postgres", "unsupported database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, "SERVER_PORT", "DATABASE_DRIVER")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig(t.TempDir())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
