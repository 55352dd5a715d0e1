package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/fredcamaral/slidekit/internal/adapters/primary/http"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/browser"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/parser"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/repository"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/watcher"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
	"github.com/fredcamaral/slidekit/internal/domain/services"
)

const (
	watchInterval = 500 * time.Millisecond
	watchDebounce = 300 * time.Millisecond
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [deck]",
	Short: "Serve a deck's save API and player",
	Long: `Start the HTTP server for a deck: the versioned save API used by
editors, the websocket event stream and the full-screen player.

Decks are .md (slides split by ---), .yaml/.yml or .json files.

Example:
  slidekit serve talk.md
  slidekit serve deck.yaml --port 9000 --token s3cret --db decks.db --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "Port to serve on (overrides config)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().String("token", "", "Bearer token required by the save API")
	serveCmd.Flags().String("storage", "", "Slide store: memory or sqlite")
	serveCmd.Flags().String("db", "", "SQLite database path (implies --storage sqlite)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the deck when its files change")
	serveCmd.Flags().Bool("open", false, "Open the player in a browser once the server is up")
	serveCmd.Flags().Bool("kiosk", false, "With --open, start Chrome full screen")
}

// validateServeConfig checks what the listener needs before binding
func validateServeConfig(config *entities.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Server.Port)
	}

	if strings.ContainsAny(config.Server.Host, " !") {
		return fmt.Errorf("invalid host: %s", config.Server.Host)
	}

	return nil
}

// validateDeckPath makes sure the deck is a readable regular file
func validateDeckPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("accessing deck: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("deck path is not a regular file: %s", path)
	}
	return nil
}

// openRepository opens the configured slide store
func openRepository(cfg entities.StorageConfig, clock ports.TimeProvider, logger *slog.Logger) (ports.SlideRepository, error) {
	switch cfg.Driver {
	case "", "memory":
		return repository.NewMemoryRepository(clock, logger), nil
	case "sqlite":
		repo, err := repository.OpenSQLite(cfg.Path, clock, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// newDeckLoader wires the markdown parser and slide templates
func newDeckLoader(logger *slog.Logger) (*parser.DeckLoader, *renderer.TemplateRenderer, error) {
	templates, err := renderer.NewTemplateRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("loading templates: %w", err)
	}
	return parser.NewDeckLoader(parser.NewGoldmarkParser(), templates, logger), templates, nil
}

// serveStack is everything runServe starts, in dependency order
type serveStack struct {
	deck   *entities.Presentation
	repo   ports.SlideRepository
	player *services.PresentationPlayer
	server *httpadapter.Server
	reload *services.LiveReloadService
	logger *slog.Logger
}

// buildServeStack loads the deck into the store and prepares the server.
// Nothing listens yet.
func buildServeStack(ctx context.Context, cfg *entities.Config, deckPath string, watch bool, logger *slog.Logger) (*serveStack, error) {
	clock := ports.NewRealTimeProvider()

	loader, templates, err := newDeckLoader(logger)
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(cfg.Storage, clock, logger)
	if err != nil {
		return nil, err
	}

	player := services.NewPresentationPlayer(nil, clock, cfg.Editor.GetPlayerSettleDelay(), logger)

	server, err := httpadapter.NewServer(httpadapter.Options{
		Config:     cfg.Server,
		Repository: repo,
		Player:     player,
		Templates:  templates,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	var deckWatcher ports.DeckWatcher
	if watch {
		deckWatcher = watcher.NewPollingWatcher(watchInterval, watchDebounce, clock, logger)
	}
	reload := services.NewLiveReloadService(deckWatcher, loader, repo, server, player, logger)

	deck, err := reload.Seed(ctx, deckPath)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return &serveStack{
		deck:   deck,
		repo:   repo,
		player: player,
		server: server,
		reload: reload,
		logger: logger,
	}, nil
}

// start binds the listener and, when a watcher is configured, starts watching
func (s *serveStack) start(ctx context.Context, cfg *entities.Config, deckPath string, watch bool) error {
	if err := s.server.Start(ctx, cfg.Server.Port, cfg.Server.Host); err != nil {
		return fmt.Errorf("port %d is already in use or cannot be bound: %w", cfg.Server.Port, err)
	}
	if watch {
		if err := s.reload.Start(ctx, deckPath); err != nil {
			return err
		}
	}
	return nil
}

// shutdown stops everything start started and closes the store
func (s *serveStack) shutdown(timeout time.Duration) error {
	var errs []error
	if err := s.reload.Stop(); err != nil {
		errs = append(errs, err)
	}
	s.player.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if s.server.IsRunning() {
		if err := s.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.repo.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// playerURL is the address of the player page for the served deck
func playerURL(addr, host, deckID string) string {
	h, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/present/" + deckID
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		h = host
	} else if h == "" || h == "0.0.0.0" || h == "::" {
		h = "localhost"
	}
	return "http://" + net.JoinHostPort(h, port) + "/present/" + deckID
}

func runServe(cmd *cobra.Command, args []string) error {
	deckPath := args[0]
	if err := validateDeckPath(deckPath); err != nil {
		return err
	}

	cfg, logger, closeLog, err := setup(cmd, deckPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	if err := validateServeConfig(cfg); err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	open, _ := cmd.Flags().GetBool("open")
	kiosk, _ := cmd.Flags().GetBool("kiosk")

	ctx := cmd.Context()
	stack, err := buildServeStack(ctx, cfg, deckPath, watch, logger)
	if err != nil {
		return err
	}

	if err := stack.start(ctx, cfg, deckPath, watch); err != nil {
		_ = stack.shutdown(cfg.Server.GetShutdownTimeout())
		return err
	}

	url := playerURL(stack.server.Addr(), cfg.Server.Host, stack.deck.ID)
	logger.Info("serving deck",
		"presentation", stack.deck.ID,
		"slides", len(stack.deck.Slides),
		"addr", stack.server.Addr(),
		"storage", cfg.Storage.Driver,
		"watch", watch)
	fmt.Fprintf(cmd.OutOrStdout(), "Save API: http://%s/slides/save\nPlayer:   %s\n", stack.server.Addr(), url)

	if open {
		if err := browser.NewLauncher(kiosk, logger).OpenPlayer(url); err != nil {
			logger.Warn("failed to open browser", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down", "timeout", cfg.Server.GetShutdownTimeout())
	return stack.shutdown(cfg.Server.GetShutdownTimeout())
}
