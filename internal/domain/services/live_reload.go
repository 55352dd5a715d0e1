package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// LiveReloadService re-reads the deck file when it changes, stores it and
// tells websocket clients to reload
type LiveReloadService struct {
	watcher     ports.DeckWatcher
	loader      ports.PresentationLoader
	repo        ports.SlideRepository
	notifier    ports.EventNotifier
	player      *PresentationPlayer
	logger      *slog.Logger
	mu          sync.Mutex
	watching    bool
	watchCancel context.CancelFunc
	deckPath    string
	done        chan struct{}
}

// NewLiveReloadService creates a new live reload service. player may be nil.
func NewLiveReloadService(
	watcher ports.DeckWatcher,
	loader ports.PresentationLoader,
	repo ports.SlideRepository,
	notifier ports.EventNotifier,
	player *PresentationPlayer,
	logger *slog.Logger,
) *LiveReloadService {
	if logger == nil {
		logger = slog.Default()
	}

	return &LiveReloadService{
		watcher:  watcher,
		loader:   loader,
		repo:     repo,
		notifier: notifier,
		player:   player,
		logger:   logger.With("service", "live_reload"),
	}
}

// Start watches deckPath until Stop or ctx is done
func (s *LiveReloadService) Start(ctx context.Context, deckPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching {
		return errors.New("already watching")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	events, err := s.watcher.Watch(watchCtx, deckPath)
	if err != nil {
		cancel()
		return fmt.Errorf("starting watcher: %w", err)
	}

	s.watching = true
	s.watchCancel = cancel
	s.deckPath = deckPath
	s.done = make(chan struct{})

	go s.handleEvents(watchCtx, events, s.done)

	return nil
}

// Stop stops watching and waits for an in-flight reload to finish
func (s *LiveReloadService) Stop() error {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watchCancel()
	s.watchCancel = nil
	s.watching = false
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// IsWatching returns whether the service is currently watching
func (s *LiveReloadService) IsWatching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watching
}

func (s *LiveReloadService) handleEvents(ctx context.Context, events <-chan ports.DeckChange, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			s.logger.Info("deck changed",
				slog.String("path", event.Path),
				slog.String("kind", string(event.Kind)),
				slog.Bool("fragment", event.Fragment))

			if event.RemovesDeck() {
				// keep serving the stored deck until the file comes back
				s.logger.Warn("deck file removed", slog.String("path", event.Path))
				s.notify(ports.UpdateEvent{
					Type:      ports.EventTypeError,
					Timestamp: event.Timestamp,
					Data:      map[string]interface{}{"file": event.Path, "error": "deck file removed"},
				})
				continue
			}

			deck, err := s.Reload(ctx)
			if err != nil {
				// the stored deck stays as it was
				s.logger.Error("failed to reload deck",
					slog.String("error", err.Error()),
					slog.String("path", event.Path))
				s.notify(ports.UpdateEvent{
					Type:      ports.EventTypeError,
					Timestamp: event.Timestamp,
					Data:      map[string]interface{}{"file": event.Path, "error": err.Error()},
				})
				continue
			}

			s.notify(ports.UpdateEvent{
				Type:      ports.EventTypeReload,
				Timestamp: event.Timestamp,
				Data: map[string]interface{}{
					"presentationId": deck.ID,
					"slides":         len(deck.Slides),
					"file":           event.Path,
				},
			})
		}
	}
}

// Seed loads the deck at path and stores it unless the repository already
// holds a deck with the same ID. Edits kept in a durable store survive a
// restart; the stored copy is returned in that case.
func (s *LiveReloadService) Seed(ctx context.Context, path string) (*entities.Presentation, error) {
	s.mu.Lock()
	s.deckPath = path
	s.mu.Unlock()

	deck, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading deck: %w", err)
	}

	stored, err := s.repo.GetPresentation(ctx, deck.ID)
	switch {
	case err == nil:
		s.logger.Info("using stored deck", slog.String("presentation", stored.ID), slog.Int("slides", len(stored.Slides)))
		deck = stored
	case errors.Is(err, ports.ErrPresentationNotFound):
		if err := s.repo.PutPresentation(ctx, deck); err != nil {
			return nil, fmt.Errorf("storing deck: %w", err)
		}
		if deck, err = s.repo.GetPresentation(ctx, deck.ID); err != nil {
			return nil, fmt.Errorf("reading stored deck: %w", err)
		}
	default:
		return nil, fmt.Errorf("reading stored deck: %w", err)
	}

	if s.player != nil {
		s.player.SetSlides(deck.Slides)
	}
	return deck, nil
}

// Reload reads the deck file and replaces the stored deck. Slides whose
// content is unchanged keep their version; changed slides move past the
// stored version so editors holding the old copy get a conflict.
func (s *LiveReloadService) Reload(ctx context.Context) (*entities.Presentation, error) {
	s.mu.Lock()
	path := s.deckPath
	s.mu.Unlock()

	if path == "" {
		return nil, errors.New("no deck path set")
	}

	deck, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading deck: %w", err)
	}

	stored, err := s.repo.GetPresentation(ctx, deck.ID)
	switch {
	case err == nil:
		carryVersions(stored, deck)
	case errors.Is(err, ports.ErrPresentationNotFound):
	default:
		return nil, fmt.Errorf("reading stored deck: %w", err)
	}

	if err := s.repo.PutPresentation(ctx, deck); err != nil {
		return nil, fmt.Errorf("storing deck: %w", err)
	}
	if s.player != nil {
		s.player.SetSlides(deck.Slides)
	}

	s.logger.Info("deck reloaded", slog.String("presentation", deck.ID), slog.Int("slides", len(deck.Slides)))
	return deck, nil
}

func (s *LiveReloadService) notify(event ports.UpdateEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyClients(event); err != nil {
		s.logger.Warn("failed to notify websocket clients",
			slog.String("error", err.Error()),
			slog.String("event_type", event.Type))
	}
}

func carryVersions(stored, fresh *entities.Presentation) {
	for i := range fresh.Slides {
		if i >= len(stored.Slides) {
			break
		}
		old := stored.Slides[i]
		slide := &fresh.Slides[i]
		slide.ID = old.ID
		if slide.HTMLContent == old.HTMLContent {
			slide.Metadata = old.Metadata
			continue
		}
		if slide.Metadata.Version <= old.Metadata.Version {
			slide.Metadata.Version = old.Metadata.Version + 1
		}
	}
}
