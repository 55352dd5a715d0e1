package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// GetDefaultConfig returns the default configuration with environment overrides
func GetDefaultConfig() *entities.Config {
	config := &entities.Config{
		Server: entities.ServerConfig{
			Host:            getEnvOrDefault("SLIDEKIT_HOST", "localhost"),
			Port:            getEnvIntOrDefault("SLIDEKIT_PORT", 8080),
			ReadTimeout:     getEnvIntOrDefault("SLIDEKIT_READ_TIMEOUT", 30),
			WriteTimeout:    getEnvIntOrDefault("SLIDEKIT_WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvIntOrDefault("SLIDEKIT_SHUTDOWN_TIMEOUT", 5),
			Environment:     getEnvOrDefault("SLIDEKIT_ENV", "development"),
			CORSOrigins: getEnvSliceOrDefault("SLIDEKIT_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:8080",
				"http://127.0.0.1:8080",
			}),
		},
		Editor: entities.EditorConfig{
			Origin:              "http://localhost:8080",
			MaxHistory:          50,
			AutoSaveDebounceMs:  30000,
			StatusResetMs:       2000,
			AlignmentThreshold:  5,
			GridSize:            20,
			PreviewScaleCap:     1.2,
			ThumbnailScaleCap:   1,
			PlayerSettleDelayMs: 100,
		},
		SaveAPI: entities.SaveAPIConfig{
			BaseURL:    getEnvOrDefault("SLIDEKIT_SAVE_URL", ""),
			Token:      getEnvOrDefault("SLIDEKIT_SAVE_TOKEN", ""),
			TimeoutSec: 15,
			MaxRetries: 3,
			EditedBy:   getEnvOrDefault("USER", ""),
		},
		Export: entities.ExportConfig{
			Format:         string(entities.ExportFormatPDF),
			SettleDelayMs:  500,
			PixelRatio:     2,
			TimeoutSec:     30,
			ContentElement: "body",
		},
		Storage: entities.StorageConfig{
			Driver: "memory",
		},
		Logging: entities.LoggingConfig{
			Level:      getEnvOrDefault("SLIDEKIT_LOG_LEVEL", "info"),
			Verbose:    getEnvBoolOrDefault("SLIDEKIT_LOG_VERBOSE", false),
			JSONFormat: getEnvBoolOrDefault("SLIDEKIT_LOG_JSON", false),
			File:       getEnvOrDefault("SLIDEKIT_LOG_FILE", ""),
		},
	}

	applyEnvironmentOverrides(config)

	return config
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvSliceOrDefault splits a comma-separated variable
func getEnvSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// applyEnvironmentOverrides applies the storage and export variables
func applyEnvironmentOverrides(config *entities.Config) {
	if driver := os.Getenv("SLIDEKIT_STORAGE"); driver != "" {
		config.Storage.Driver = driver
	}

	if path := os.Getenv("SLIDEKIT_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	if format := os.Getenv("SLIDEKIT_EXPORT_FORMAT"); format != "" {
		config.Export.Format = format
	}

	if browser := os.Getenv("SLIDEKIT_CHROME"); browser != "" {
		config.Export.BrowserPath = browser
	}
}
