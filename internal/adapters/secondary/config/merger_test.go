package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

func TestConfigMerger_Merge(t *testing.T) {
	merger := NewConfigMerger()

	t.Run("merge with no configs returns defaults", func(t *testing.T) {
		result := merger.Merge()
		assert.NotNil(t, result)
		assert.Equal(t, "localhost", result.Server.Host)
		assert.Equal(t, 8080, result.Server.Port)
		assert.Equal(t, "memory", result.Storage.Driver)
	})

	t.Run("merge multiple configs with precedence", func(t *testing.T) {
		base := &entities.Config{
			Server:  entities.ServerConfig{Host: "localhost", Port: 8080},
			Editor:  entities.EditorConfig{MaxHistory: 50, GridSize: 20},
			Storage: entities.StorageConfig{Driver: "memory"},
		}
		override := &entities.Config{
			Server:  entities.ServerConfig{Host: "0.0.0.0"},
			Editor:  entities.EditorConfig{GridSize: 8},
			Storage: entities.StorageConfig{Driver: "sqlite", Path: "/tmp/s.db"},
		}

		result := merger.Merge(base, nil, override)
		assert.Equal(t, "0.0.0.0", result.Server.Host)
		assert.Equal(t, 8080, result.Server.Port)
		assert.Equal(t, 50, result.Editor.MaxHistory)
		assert.Equal(t, 8.0, result.Editor.GridSize)
		assert.Equal(t, "sqlite", result.Storage.Driver)
		assert.Equal(t, "/tmp/s.db", result.Storage.Path)

		assert.Equal(t, "localhost", base.Server.Host, "inputs are not modified")
	})

	t.Run("slices are copied", func(t *testing.T) {
		base := &entities.Config{}
		override := &entities.Config{Server: entities.ServerConfig{CORSOrigins: []string{"https://a.example.com"}}}

		result := merger.Merge(base, override)
		override.Server.CORSOrigins[0] = "changed"
		assert.Equal(t, []string{"https://a.example.com"}, result.Server.CORSOrigins)
	})

	t.Run("booleans only turn on", func(t *testing.T) {
		base := &entities.Config{Logging: entities.LoggingConfig{JSONFormat: true}}
		result := merger.Merge(base, &entities.Config{})
		assert.True(t, result.Logging.JSONFormat)
	})
}

func TestConfigMerger_ApplyFlags(t *testing.T) {
	merger := NewConfigMerger()
	base := &entities.Config{
		Server:  entities.ServerConfig{Host: "localhost", Port: 8080},
		Storage: entities.StorageConfig{Driver: "memory"},
	}

	result := merger.ApplyFlags(base, map[string]interface{}{
		"port":     3000,
		"host":     "0.0.0.0",
		"token":    "secret",
		"save-url": "http://localhost:3000",
		"db":       "/tmp/slides.db",
		"verbose":  true,
		"ignored":  42,
	})

	assert.Equal(t, 3000, result.Server.Port)
	assert.Equal(t, "0.0.0.0", result.Server.Host)
	assert.Equal(t, "secret", result.Server.AuthToken)
	assert.Equal(t, "secret", result.SaveAPI.Token)
	assert.Equal(t, "http://localhost:3000", result.SaveAPI.BaseURL)
	assert.Equal(t, "sqlite", result.Storage.Driver)
	assert.Equal(t, "/tmp/slides.db", result.Storage.Path)
	assert.Equal(t, "debug", result.Logging.Level)

	assert.Equal(t, 8080, base.Server.Port, "base is not modified")

	t.Run("zero flags keep values", func(t *testing.T) {
		result := merger.ApplyFlags(base, map[string]interface{}{"port": 0, "host": ""})
		assert.Equal(t, 8080, result.Server.Port)
		assert.Equal(t, "localhost", result.Server.Host)
	})
}

func TestConfigMerger_ApplyEnvVars(t *testing.T) {
	t.Setenv("SLIDEKIT_HOST", "example.com")
	t.Setenv("SLIDEKIT_PORT", "9999")
	t.Setenv("SLIDEKIT_AUTH_TOKEN", "env-token")
	t.Setenv("SLIDEKIT_AUTOSAVE_MS", "1500")
	t.Setenv("SLIDEKIT_STORAGE", "sqlite")
	t.Setenv("SLIDEKIT_STORAGE_PATH", "/data/slides.db")
	t.Setenv("SLIDEKIT_LOG_JSON", "true")

	result := NewConfigMerger().ApplyEnvVars(&entities.Config{Server: entities.ServerConfig{Port: 8080}})

	assert.Equal(t, "example.com", result.Server.Host)
	assert.Equal(t, 9999, result.Server.Port)
	assert.Equal(t, "env-token", result.Server.AuthToken)
	assert.Equal(t, 1500, result.Editor.AutoSaveDebounceMs)
	assert.Equal(t, "sqlite", result.Storage.Driver)
	assert.Equal(t, "/data/slides.db", result.Storage.Path)
	assert.True(t, result.Logging.JSONFormat)

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv("SLIDEKIT_PORT", "not-a-port")
		result := NewConfigMerger().ApplyEnvVars(&entities.Config{Server: entities.ServerConfig{Port: 8080}})
		assert.Equal(t, 8080, result.Server.Port)
	})
}

func TestGetDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SLIDEKIT_PORT", "7000")
	t.Setenv("SLIDEKIT_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SLIDEKIT_EXPORT_FORMAT", "pptx")

	config := GetDefaultConfig()
	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, config.Server.CORSOrigins)
	assert.Equal(t, "pptx", config.Export.Format)
	assert.NoError(t, config.Validate())
}
