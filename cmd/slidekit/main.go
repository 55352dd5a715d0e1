package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/services"
)

var (
	// Version is set during build
	Version = "dev"

	// BuildDate is set during build
	BuildDate = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "slidekit",
	Short: "Edit, present and export HTML slide decks",
	Long: `slidekit serves HTML slide decks for in-place editing and presenting.
Edits are persisted through a versioned save API, decks can be played
full screen and exported to PDF or PPTX.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
Build Date: ` + BuildDate + `
`)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Global config file (default: ~/.config/slidekit/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig resolves the configuration for the deck at deckPath. Only
// flags the user actually set override lower layers.
func loadConfig(cmd *cobra.Command, deckPath string) (*entities.Config, error) {
	loader := config.NewTOMLLoader()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader = config.NewTOMLLoaderAt(path)
	}

	svc := services.NewConfigService(loader, config.NewConfigMerger())
	cfg, err := svc.LoadConfig(cmd.Context(), filepath.Dir(deckPath), changedFlags(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// changedFlags collects the flags the merger understands, keyed by flag name
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})

	for _, name := range []string{"host", "token", "save-url", "user", "format", "chrome", "storage", "db", "log-level"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		if port, err := cmd.Flags().GetInt("port"); err == nil {
			flags["port"] = port
		}
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		flags["verbose"] = true
	}
	return flags
}

// newLogger builds the process logger from the logging section. The
// returned close func releases the log file, if any.
func newLogger(cfg entities.LoggingConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	out := stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(filepath.Clean(cfg.File), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.GetLevel())}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeFn, nil
}

func slogLevel(level entities.LogLevel) slog.Level {
	switch level {
	case entities.LogLevelDebug:
		return slog.LevelDebug
	case entities.LogLevelWarn:
		return slog.LevelWarn
	case entities.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setup loads config and installs the logger for a deck command
func setup(cmd *cobra.Command, deckPath string) (*entities.Config, *slog.Logger, func() error, error) {
	cfg, err := loadConfig(cmd, deckPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeFn, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closeFn, nil
}
