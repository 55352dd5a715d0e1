// Package repository stores presentations and enforces optimistic
// versioning on slide saves.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// MemoryRepository keeps decks in process memory
type MemoryRepository struct {
	mu     sync.RWMutex
	decks  map[string]*entities.Presentation
	clock  ports.TimeProvider
	logger *slog.Logger
}

var _ ports.SlideRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(clock ports.TimeProvider, logger *slog.Logger) *MemoryRepository {
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryRepository{
		decks:  make(map[string]*entities.Presentation),
		clock:  clock,
		logger: logger.With("service", "memory_repository"),
	}
}

// PutPresentation stores a copy of p, assigning missing ids
func (r *MemoryRepository) PutPresentation(ctx context.Context, p *entities.Presentation) error {
	if p.ID == "" {
		return fmt.Errorf("presentation id is required")
	}

	stored := copyPresentation(p)
	stored.Reindex()
	for i := range stored.Slides {
		if stored.Slides[i].ID == "" {
			stored.Slides[i].ID = uuid.NewString()
		}
	}

	r.mu.Lock()
	r.decks[p.ID] = stored
	r.mu.Unlock()

	r.logger.Debug("presentation stored", "presentation", p.ID, "slides", len(stored.Slides))
	return nil
}

// GetPresentation returns a copy of the deck
func (r *MemoryRepository) GetPresentation(ctx context.Context, id string) (*entities.Presentation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.decks[id]
	if !ok {
		return nil, fmt.Errorf("presentation %s: %w", id, ports.ErrPresentationNotFound)
	}
	return copyPresentation(p), nil
}

// GetSlide returns a copy of one slide
func (r *MemoryRepository) GetSlide(ctx context.Context, presentationID string, index int) (*entities.Slide, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.decks[presentationID]
	if !ok {
		return nil, fmt.Errorf("presentation %s: %w", presentationID, ports.ErrPresentationNotFound)
	}
	if index < 0 || index >= len(p.Slides) {
		return nil, fmt.Errorf("slide %s/%d: %w", presentationID, index, ports.ErrSlideNotFound)
	}
	slide := p.Slides[index]
	return &slide, nil
}

// SaveSlide applies the save when the base version matches
func (r *MemoryRepository) SaveSlide(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &entities.SaveError{StatusCode: 400, Message: err.Error(), Cause: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.decks[req.PresentationID]
	if !ok {
		return nil, fmt.Errorf("presentation %s: %w", req.PresentationID, ports.ErrPresentationNotFound)
	}

	now := r.clock.Now().UTC()

	if req.SlideIndex == len(p.Slides) && req.Metadata.Version == 0 {
		slide := entities.Slide{
			ID:          req.SlideID,
			Index:       req.SlideIndex,
			HTMLContent: req.HTMLContent,
			Metadata:    entities.SlideMetadata{LastEditedAt: now, EditedBy: req.Metadata.EditedBy, Version: 1},
		}
		if slide.ID == "" {
			slide.ID = uuid.NewString()
		}
		p.Slides = append(p.Slides, slide)
		return &entities.SaveResult{SlideID: slide.ID, Version: 1, SavedAt: now}, nil
	}

	if req.SlideIndex < 0 || req.SlideIndex >= len(p.Slides) {
		return nil, fmt.Errorf("slide %s/%d: %w", req.PresentationID, req.SlideIndex, ports.ErrSlideNotFound)
	}

	slide := &p.Slides[req.SlideIndex]
	if slide.Metadata.Version != req.Metadata.Version {
		r.logger.Info("rejecting stale save",
			"presentation", req.PresentationID,
			"index", req.SlideIndex,
			"base_version", req.Metadata.Version,
			"current_version", slide.Metadata.Version)
		return nil, conflictError(slide.Metadata.Version)
	}

	slide.HTMLContent = req.HTMLContent
	slide.Metadata = entities.SlideMetadata{
		LastEditedAt: now,
		EditedBy:     req.Metadata.EditedBy,
		Version:      slide.Metadata.Version + 1,
	}
	return &entities.SaveResult{SlideID: slide.ID, Version: slide.Metadata.Version, SavedAt: now}, nil
}

// Close releases nothing; it exists to satisfy the port
func (r *MemoryRepository) Close() error {
	return nil
}

func conflictError(current int) *entities.SaveError {
	return &entities.SaveError{
		StatusCode:     409,
		Conflict:       true,
		Message:        "slide was modified since it was loaded",
		CurrentVersion: current,
	}
}

func copyPresentation(p *entities.Presentation) *entities.Presentation {
	c := *p
	c.Slides = append([]entities.Slide(nil), p.Slides...)
	return &c
}
