package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3000,
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 5,
		},
		Editor: EditorConfig{
			Origin:             "http://localhost:3000",
			MaxHistory:         50,
			AutoSaveDebounceMs: 30000,
		},
		SaveAPI: SaveAPIConfig{BaseURL: "http://localhost:3000"},
		Export:  ExportConfig{Format: "pdf"},
		Storage: StorageConfig{Driver: "memory"},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, "server config"},
		{"invalid origin", func(c *Config) { c.Editor.Origin = "not a url" }, "editor config"},
		{"negative debounce", func(c *Config) { c.Editor.AutoSaveDebounceMs = -1 }, "autosave debounce"},
		{"save api without scheme", func(c *Config) { c.SaveAPI.BaseURL = "example.com" }, "save api config"},
		{"unknown export format", func(c *Config) { c.Export.Format = "gif" }, "unsupported export format"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite" }, "requires a path"},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "redis" }, "unknown storage driver"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
		{"relative log file", func(c *Config) { c.Logging.File = "slidekit.log" }, "must be absolute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestServerConfig_CORSOrigins(t *testing.T) {
	t.Run("wildcard origin allowed", func(t *testing.T) {
		config := ServerConfig{Host: "localhost", Port: 8080, CORSOrigins: []string{"*"}}
		require.NoError(t, config.Validate())
	})

	t.Run("origin without protocol rejected", func(t *testing.T) {
		config := ServerConfig{Host: "localhost", Port: 8080, CORSOrigins: []string{"example.com"}}

		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid CORS origin format")
	})

	t.Run("empty origin rejected", func(t *testing.T) {
		config := ServerConfig{Host: "localhost", Port: 8080, CORSOrigins: []string{""}}

		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CORS origin cannot be empty")
	})

	t.Run("defaults when unset", func(t *testing.T) {
		config := ServerConfig{Host: "localhost", Port: 8080}
		assert.Len(t, config.GetCORSOrigins(), 4)
		assert.Contains(t, config.GetCORSOrigins(), "http://localhost:8080")
	})
}

func TestEditorConfig_Defaults(t *testing.T) {
	var e EditorConfig

	assert.Equal(t, "http://localhost:8080", e.GetOrigin())
	assert.Equal(t, 50, e.GetMaxHistory())
	assert.Equal(t, 30*time.Second, e.GetAutoSaveDebounce())
	assert.Equal(t, 2*time.Second, e.GetStatusReset())
	assert.Equal(t, 5.0, e.GetAlignmentThreshold())
	assert.Equal(t, 1.2, e.GetPreviewScaleCap())

	e.Origin = "https://slides.example.com/"
	assert.Equal(t, "https://slides.example.com", e.GetOrigin())
}

func TestExportConfig_Defaults(t *testing.T) {
	var e ExportConfig

	assert.Equal(t, ExportFormatPDF, e.GetFormat())
	assert.Equal(t, 2.0, e.GetPixelRatio())
	assert.Equal(t, 500*time.Millisecond, e.GetSettleDelay())
	assert.Equal(t, "body", e.GetContentElement())
}
