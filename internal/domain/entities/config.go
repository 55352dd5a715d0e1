package entities

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Editor  EditorConfig  `toml:"editor"`
	SaveAPI SaveAPIConfig `toml:"save_api"`
	Export  ExportConfig  `toml:"export"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor config: %w", err)
	}

	if err := c.SaveAPI.Validate(); err != nil {
		return fmt.Errorf("save api config: %w", err)
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	Environment     string   `toml:"environment"`
	CORSOrigins     []string `toml:"cors_origins"`
	// AuthToken is the bearer token required on the save API; empty disables the check
	AuthToken string `toml:"auth_token"`
}

// Validate validates server configuration
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}

	if s.Host != "" {
		if ip := net.ParseIP(s.Host); ip == nil {
			if _, err := net.LookupHost(s.Host); err != nil {
				return fmt.Errorf("invalid host: %w", err)
			}
		}
	}

	if s.ReadTimeout < 0 {
		return errors.New("read timeout must be non-negative")
	}

	if s.WriteTimeout < 0 {
		return errors.New("write timeout must be non-negative")
	}

	if s.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must be non-negative")
	}

	for _, origin := range s.CORSOrigins {
		if origin == "" {
			return errors.New("CORS origin cannot be empty")
		}
		if origin == "*" {
			continue
		}
		if len(origin) < 7 || (!strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin format: %s (must start with http:// or https://)", origin)
		}
	}

	return nil
}

// GetReadTimeout returns the read timeout as a duration
func (s ServerConfig) GetReadTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a duration
func (s ServerConfig) GetWriteTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetShutdownTimeout returns the shutdown timeout as a duration
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetCORSOrigins returns CORS origins with defaults if empty
func (s ServerConfig) GetCORSOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}
	}
	return s.CORSOrigins
}

// IsDevelopment returns true if the server is running in development mode
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development" || s.Environment == ""
}

// EditorConfig tunes the in-frame editor
type EditorConfig struct {
	// Origin is the host origin every bridge message must carry
	Origin              string  `toml:"origin"`
	MaxHistory          int     `toml:"max_history"`
	AutoSaveDebounceMs  int     `toml:"autosave_debounce_ms"`
	StatusResetMs       int     `toml:"status_reset_ms"`
	AlignmentThreshold  float64 `toml:"alignment_threshold"`
	GridSize            float64 `toml:"grid_size"`
	PreviewScaleCap     float64 `toml:"preview_scale_cap"`
	ThumbnailScaleCap   float64 `toml:"thumbnail_scale_cap"`
	PlayerSettleDelayMs int     `toml:"player_settle_delay_ms"`
}

// Validate validates editor configuration
func (e EditorConfig) Validate() error {
	if e.Origin != "" {
		u, err := url.Parse(e.Origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid editor origin: %s", e.Origin)
		}
	}

	if e.MaxHistory < 0 {
		return errors.New("max history must be non-negative")
	}

	if e.AutoSaveDebounceMs < 0 {
		return errors.New("autosave debounce must be non-negative")
	}

	if e.StatusResetMs < 0 {
		return errors.New("status reset delay must be non-negative")
	}

	if e.AlignmentThreshold < 0 {
		return errors.New("alignment threshold must be non-negative")
	}

	if e.GridSize < 0 {
		return errors.New("grid size must be non-negative")
	}

	if e.PreviewScaleCap < 0 || e.ThumbnailScaleCap < 0 {
		return errors.New("scale caps must be non-negative")
	}

	return nil
}

// GetOrigin returns the host origin with a default
func (e EditorConfig) GetOrigin() string {
	if e.Origin == "" {
		return "http://localhost:8080"
	}
	return strings.TrimRight(e.Origin, "/")
}

// GetMaxHistory returns the undo history bound (default 50)
func (e EditorConfig) GetMaxHistory() int {
	if e.MaxHistory <= 0 {
		return 50
	}
	return e.MaxHistory
}

// GetAutoSaveDebounce returns the auto-save idle period (default 30s)
func (e EditorConfig) GetAutoSaveDebounce() time.Duration {
	if e.AutoSaveDebounceMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.AutoSaveDebounceMs) * time.Millisecond
}

// GetStatusReset returns how long saved/error statuses stay visible (default 2s)
func (e EditorConfig) GetStatusReset() time.Duration {
	if e.StatusResetMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(e.StatusResetMs) * time.Millisecond
}

// GetAlignmentThreshold returns the snap distance in pixels (default 5)
func (e EditorConfig) GetAlignmentThreshold() float64 {
	if e.AlignmentThreshold <= 0 {
		return 5
	}
	return e.AlignmentThreshold
}

// GetGridSize returns the grid spacing in slide pixels (default 20)
func (e EditorConfig) GetGridSize() float64 {
	if e.GridSize <= 0 {
		return 20
	}
	return e.GridSize
}

// GetPreviewScaleCap returns the single-slide preview cap (default 1.2)
func (e EditorConfig) GetPreviewScaleCap() float64 {
	if e.PreviewScaleCap <= 0 {
		return 1.2
	}
	return e.PreviewScaleCap
}

// GetThumbnailScaleCap returns the thumbnail grid cap (default 1)
func (e EditorConfig) GetThumbnailScaleCap() float64 {
	if e.ThumbnailScaleCap <= 0 {
		return 1
	}
	return e.ThumbnailScaleCap
}

// GetPlayerSettleDelay returns the delay before the player measures the viewport (default 100ms)
func (e EditorConfig) GetPlayerSettleDelay() time.Duration {
	if e.PlayerSettleDelayMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(e.PlayerSettleDelayMs) * time.Millisecond
}

// SaveAPIConfig points the editor at the persistence backend
type SaveAPIConfig struct {
	BaseURL    string `toml:"base_url"`
	Token      string `toml:"token"`
	TimeoutSec int    `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
	EditedBy   string `toml:"edited_by"`
}

// Validate validates save API configuration
func (s SaveAPIConfig) Validate() error {
	if s.BaseURL != "" {
		if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
			return fmt.Errorf("save api base url must start with http:// or https://: %s", s.BaseURL)
		}
	}

	if s.TimeoutSec < 0 {
		return errors.New("timeout must be non-negative")
	}

	if s.MaxRetries < 0 {
		return errors.New("max retries must be non-negative")
	}

	return nil
}

// GetTimeout returns the request timeout (default 15s)
func (s SaveAPIConfig) GetTimeout() time.Duration {
	if s.TimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSec) * time.Second
}

// ExportFormat names a deck output format
type ExportFormat string

const (
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatPPTX ExportFormat = "pptx"
)

// ExportConfig contains rasterizing export configuration
type ExportConfig struct {
	Format         string  `toml:"format"`
	BrowserPath    string  `toml:"browser_path"`
	RemoteURL      string  `toml:"remote_url"`
	SettleDelayMs  int     `toml:"settle_delay_ms"`
	PixelRatio     float64 `toml:"pixel_ratio"`
	TimeoutSec     int     `toml:"timeout"`
	ContentElement string  `toml:"content_element"`
}

// Validate validates export configuration
func (e ExportConfig) Validate() error {
	switch ExportFormat(e.Format) {
	case "", ExportFormatPDF, ExportFormatPPTX:
	default:
		return fmt.Errorf("unsupported export format: %s (must be pdf or pptx)", e.Format)
	}

	if e.SettleDelayMs < 0 {
		return errors.New("settle delay must be non-negative")
	}

	if e.PixelRatio < 0 {
		return errors.New("pixel ratio must be non-negative")
	}

	if e.TimeoutSec < 0 {
		return errors.New("timeout must be non-negative")
	}

	return nil
}

// GetFormat returns the deck format (default pdf)
func (e ExportConfig) GetFormat() ExportFormat {
	if e.Format == "" {
		return ExportFormatPDF
	}
	return ExportFormat(e.Format)
}

// GetSettleDelay returns the wait after fonts are ready (default 500ms)
func (e ExportConfig) GetSettleDelay() time.Duration {
	if e.SettleDelayMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(e.SettleDelayMs) * time.Millisecond
}

// GetPixelRatio returns the capture scale (default 2)
func (e ExportConfig) GetPixelRatio() float64 {
	if e.PixelRatio <= 0 {
		return 2
	}
	return e.PixelRatio
}

// GetTimeout returns the per-slide render timeout (default 30s)
func (e ExportConfig) GetTimeout() time.Duration {
	if e.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSec) * time.Second
}

// GetContentElement returns the selector of the captured container (default body)
func (e ExportConfig) GetContentElement() string {
	if e.ContentElement == "" {
		return "body"
	}
	return e.ContentElement
}

// StorageConfig selects the slide repository backend
type StorageConfig struct {
	Driver string `toml:"driver"` // memory, sqlite
	Path   string `toml:"path"`
}

// Validate validates storage configuration
func (s StorageConfig) Validate() error {
	switch s.Driver {
	case "", "memory":
	case "sqlite":
		if s.Path == "" {
			return errors.New("sqlite storage requires a path")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s (must be memory or sqlite)", s.Driver)
	}
	return nil
}

// LogLevel represents logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`       // debug, info, warn, error
	Verbose    bool   `toml:"verbose"`     // Enable verbose logging
	JSONFormat bool   `toml:"json_format"` // Output logs in JSON format
	File       string `toml:"file"`        // Log to file (optional)
}

// Validate validates logging configuration
func (l LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	case "":
		// Empty is okay, will use default
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l.Level)
	}

	if l.File != "" {
		if !filepath.IsAbs(l.File) {
			return errors.New("log file path must be absolute")
		}

		dir := filepath.Dir(l.File)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("log file directory does not exist: %s", dir)
		}
	}

	return nil
}

// GetLevel returns the log level with default
func (l LoggingConfig) GetLevel() LogLevel {
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}
