// Package http serves the save API, slide and deck reads, the player
// endpoints and the websocket event stream.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/cors"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
	"github.com/fredcamaral/slidekit/internal/domain/services"
)

// Options wires the server's collaborators. Player and Templates are optional.
type Options struct {
	Config     entities.ServerConfig
	Repository ports.SlideRepository
	Player     *services.PresentationPlayer
	Templates  *renderer.TemplateRenderer
	Clock      ports.TimeProvider
	Logger     *slog.Logger
}

// Server implements the HTTPServer interface
type Server struct {
	server    *http.Server
	listener  net.Listener
	connMgr   *ConnectionManager
	repo      ports.SlideRepository
	player    *services.PresentationPlayer
	templates *renderer.TemplateRenderer
	config    entities.ServerConfig
	sanitizer *bluemonday.Policy
	limiter   *rateLimiter
	clock     ports.TimeProvider
	logger    *slog.Logger
	handler   http.Handler
	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
}

var _ ports.HTTPServer = (*Server)(nil)

// NewServer creates a server. Nothing listens until Start.
func NewServer(opts Options) (*Server, error) {
	if opts.Repository == nil {
		return nil, errors.New("server needs a slide repository")
	}
	if opts.Clock == nil {
		opts.Clock = ports.NewRealTimeProvider()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		connMgr:   NewConnectionManager(),
		repo:      opts.Repository,
		player:    opts.Player,
		templates: opts.Templates,
		config:    opts.Config,
		sanitizer: createHTMLSanitizer(),
		limiter:   newRateLimiter(opts.Clock),
		clock:     opts.Clock,
		logger:    opts.Logger.With("service", "http"),
	}
	s.handler = s.setupRoutes()

	if opts.Config.AuthToken == "" {
		s.logger.Warn("save API has no auth token configured; every save is accepted")
	}
	return s, nil
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on host:port and serves until Stop or ctx is done.
// Port 0 picks a free port; Addr reports it.
func (s *Server) Start(ctx context.Context, port int, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.listener = ln

	go s.connMgr.Run(runCtx)
	if s.player != nil {
		go s.forwardPlayerEvents(runCtx)
	}

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.GetReadTimeout(),
		WriteTimeout: s.config.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}
	s.running = true

	go func() {
		s.logger.Info("HTTP server starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address while running
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New("server not running")
	}

	s.connMgr.CloseAll()
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.GetShutdownTimeout())
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.running = false
	s.listener = nil
	return nil
}

// NotifyClients sends an update event to all connected clients
func (s *Server) NotifyClients(event ports.UpdateEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return errors.New("server not running")
	}

	s.connMgr.Broadcast(event)
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// forwardPlayerEvents relays player state changes to websocket clients
func (s *Server) forwardPlayerEvents(ctx context.Context) {
	id := "http-" + uuid.NewString()
	events := s.player.Subscribe(id)
	defer s.player.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.connMgr.Broadcast(ports.UpdateEvent{
				Type:      ports.EventTypeNavigation,
				Timestamp: ev.Timestamp,
				Data: map[string]interface{}{
					"event": ev.Type,
					"state": ev.State,
				},
			})
		}
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	router.Handle("/slides/save", s.requireToken(http.HandlerFunc(s.handleSaveSlide))).Methods(http.MethodPut)
	router.HandleFunc("/slides/{presentationId}/{index:[0-9]+}", s.handleGetSlide).Methods(http.MethodGet)
	router.HandleFunc("/presentations/{id}", s.handleGetPresentation).Methods(http.MethodGet)
	router.HandleFunc("/present/{id}", s.handlePresent).Methods(http.MethodGet)

	NewPlayerHandler(s.player, s.logger).RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.GetCORSOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	// security -> rate limiting -> logging -> recovery, outermost last
	var handler http.Handler = c.Handler(router)
	handler = securityHeadersMiddleware(handler)
	handler = s.limiter.middleware(handler)
	handler = createLoggingMiddleware(handler, s.logger, s.clock)
	handler = createRecoveryMiddleware(handler, s.logger)

	return handler
}
