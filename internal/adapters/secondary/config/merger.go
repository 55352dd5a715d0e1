package config

import (
	"os"
	"strconv"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// ConfigMerger implements the ConfigMerger interface
type ConfigMerger struct{}

// NewConfigMerger creates a new configuration merger
func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge merges multiple configurations with later configs taking precedence
func (m *ConfigMerger) Merge(configs ...*entities.Config) *entities.Config {
	if len(configs) == 0 {
		return GetDefaultConfig()
	}

	result := deepCopy(configs[0])
	if result == nil {
		result = &entities.Config{}
	}

	for i := 1; i < len(configs); i++ {
		if configs[i] != nil {
			m.mergeInto(result, configs[i])
		}
	}

	return result
}

// ApplyFlags applies CLI flag overrides to a configuration
func (m *ConfigMerger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	result := deepCopy(config)

	if port, ok := flags["port"].(int); ok && port > 0 {
		result.Server.Port = port
	}

	if host, ok := flags["host"].(string); ok && host != "" {
		result.Server.Host = host
	}

	if token, ok := flags["token"].(string); ok && token != "" {
		result.Server.AuthToken = token
		result.SaveAPI.Token = token
	}

	if url, ok := flags["save-url"].(string); ok && url != "" {
		result.SaveAPI.BaseURL = url
	}

	if user, ok := flags["user"].(string); ok && user != "" {
		result.SaveAPI.EditedBy = user
	}

	if format, ok := flags["format"].(string); ok && format != "" {
		result.Export.Format = format
	}

	if chrome, ok := flags["chrome"].(string); ok && chrome != "" {
		result.Export.BrowserPath = chrome
	}

	if driver, ok := flags["storage"].(string); ok && driver != "" {
		result.Storage.Driver = driver
	}

	if path, ok := flags["db"].(string); ok && path != "" {
		result.Storage.Path = path
		if result.Storage.Driver == "" || result.Storage.Driver == "memory" {
			result.Storage.Driver = "sqlite"
		}
	}

	if level, ok := flags["log-level"].(string); ok && level != "" {
		result.Logging.Level = level
	}

	if verbose, ok := flags["verbose"].(bool); ok && verbose {
		result.Logging.Verbose = true
		result.Logging.Level = string(entities.LogLevelDebug)
	}

	return result
}

// ApplyEnvVars applies environment variable overrides to a configuration
func (m *ConfigMerger) ApplyEnvVars(config *entities.Config) *entities.Config {
	result := deepCopy(config)

	if host := os.Getenv("SLIDEKIT_HOST"); host != "" {
		result.Server.Host = host
	}

	if portStr := os.Getenv("SLIDEKIT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			result.Server.Port = port
		}
	}

	if env := os.Getenv("SLIDEKIT_ENV"); env != "" {
		result.Server.Environment = env
	}

	if token := os.Getenv("SLIDEKIT_AUTH_TOKEN"); token != "" {
		result.Server.AuthToken = token
	}

	if origin := os.Getenv("SLIDEKIT_EDITOR_ORIGIN"); origin != "" {
		result.Editor.Origin = origin
	}

	if debounceStr := os.Getenv("SLIDEKIT_AUTOSAVE_MS"); debounceStr != "" {
		if debounce, err := strconv.Atoi(debounceStr); err == nil && debounce > 0 {
			result.Editor.AutoSaveDebounceMs = debounce
		}
	}

	if url := os.Getenv("SLIDEKIT_SAVE_URL"); url != "" {
		result.SaveAPI.BaseURL = url
	}

	if token := os.Getenv("SLIDEKIT_SAVE_TOKEN"); token != "" {
		result.SaveAPI.Token = token
	}

	if driver := os.Getenv("SLIDEKIT_STORAGE"); driver != "" {
		result.Storage.Driver = driver
	}

	if path := os.Getenv("SLIDEKIT_STORAGE_PATH"); path != "" {
		result.Storage.Path = path
	}

	if level := os.Getenv("SLIDEKIT_LOG_LEVEL"); level != "" {
		result.Logging.Level = level
	}

	if jsonStr := os.Getenv("SLIDEKIT_LOG_JSON"); jsonStr != "" {
		if asJSON, err := strconv.ParseBool(jsonStr); err == nil {
			result.Logging.JSONFormat = asJSON
		}
	}

	return result
}

// mergeInto merges source configuration into target configuration.
// Zero values in source leave target untouched.
func (m *ConfigMerger) mergeInto(target, source *entities.Config) {
	// Server config
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.ReadTimeout != 0 {
		target.Server.ReadTimeout = source.Server.ReadTimeout
	}
	if source.Server.WriteTimeout != 0 {
		target.Server.WriteTimeout = source.Server.WriteTimeout
	}
	if source.Server.ShutdownTimeout != 0 {
		target.Server.ShutdownTimeout = source.Server.ShutdownTimeout
	}
	if source.Server.Environment != "" {
		target.Server.Environment = source.Server.Environment
	}
	if source.Server.AuthToken != "" {
		target.Server.AuthToken = source.Server.AuthToken
	}
	if len(source.Server.CORSOrigins) > 0 {
		target.Server.CORSOrigins = append([]string(nil), source.Server.CORSOrigins...)
	}

	// Editor config
	if source.Editor.Origin != "" {
		target.Editor.Origin = source.Editor.Origin
	}
	if source.Editor.MaxHistory != 0 {
		target.Editor.MaxHistory = source.Editor.MaxHistory
	}
	if source.Editor.AutoSaveDebounceMs != 0 {
		target.Editor.AutoSaveDebounceMs = source.Editor.AutoSaveDebounceMs
	}
	if source.Editor.StatusResetMs != 0 {
		target.Editor.StatusResetMs = source.Editor.StatusResetMs
	}
	if source.Editor.AlignmentThreshold != 0 {
		target.Editor.AlignmentThreshold = source.Editor.AlignmentThreshold
	}
	if source.Editor.GridSize != 0 {
		target.Editor.GridSize = source.Editor.GridSize
	}
	if source.Editor.PreviewScaleCap != 0 {
		target.Editor.PreviewScaleCap = source.Editor.PreviewScaleCap
	}
	if source.Editor.ThumbnailScaleCap != 0 {
		target.Editor.ThumbnailScaleCap = source.Editor.ThumbnailScaleCap
	}
	if source.Editor.PlayerSettleDelayMs != 0 {
		target.Editor.PlayerSettleDelayMs = source.Editor.PlayerSettleDelayMs
	}

	// Save API config
	if source.SaveAPI.BaseURL != "" {
		target.SaveAPI.BaseURL = source.SaveAPI.BaseURL
	}
	if source.SaveAPI.Token != "" {
		target.SaveAPI.Token = source.SaveAPI.Token
	}
	if source.SaveAPI.TimeoutSec != 0 {
		target.SaveAPI.TimeoutSec = source.SaveAPI.TimeoutSec
	}
	if source.SaveAPI.MaxRetries != 0 {
		target.SaveAPI.MaxRetries = source.SaveAPI.MaxRetries
	}
	if source.SaveAPI.EditedBy != "" {
		target.SaveAPI.EditedBy = source.SaveAPI.EditedBy
	}

	// Export config
	if source.Export.Format != "" {
		target.Export.Format = source.Export.Format
	}
	if source.Export.BrowserPath != "" {
		target.Export.BrowserPath = source.Export.BrowserPath
	}
	if source.Export.RemoteURL != "" {
		target.Export.RemoteURL = source.Export.RemoteURL
	}
	if source.Export.SettleDelayMs != 0 {
		target.Export.SettleDelayMs = source.Export.SettleDelayMs
	}
	if source.Export.PixelRatio != 0 {
		target.Export.PixelRatio = source.Export.PixelRatio
	}
	if source.Export.TimeoutSec != 0 {
		target.Export.TimeoutSec = source.Export.TimeoutSec
	}
	if source.Export.ContentElement != "" {
		target.Export.ContentElement = source.Export.ContentElement
	}

	// Storage config
	if source.Storage.Driver != "" {
		target.Storage.Driver = source.Storage.Driver
	}
	if source.Storage.Path != "" {
		target.Storage.Path = source.Storage.Path
	}

	// Logging config; TOML cannot tell false from unset, so booleans only turn on
	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	if source.Logging.File != "" {
		target.Logging.File = source.Logging.File
	}
	if source.Logging.Verbose {
		target.Logging.Verbose = true
	}
	if source.Logging.JSONFormat {
		target.Logging.JSONFormat = true
	}
}

// deepCopy creates a deep copy of a configuration
func deepCopy(src *entities.Config) *entities.Config {
	if src == nil {
		return nil
	}

	dst := *src
	if src.Server.CORSOrigins != nil {
		dst.Server.CORSOrigins = make([]string, len(src.Server.CORSOrigins))
		copy(dst.Server.CORSOrigins, src.Server.CORSOrigins)
	}
	return &dst
}

// Ensure ConfigMerger implements ports.ConfigMerger
var _ ports.ConfigMerger = (*ConfigMerger)(nil)
