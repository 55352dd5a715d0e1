package ports

import (
	"context"
	"errors"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

var (
	// ErrSlideNotFound is returned when no slide exists at the requested position
	ErrSlideNotFound = errors.New("slide not found")

	// ErrPresentationNotFound is returned for an unknown presentation id
	ErrPresentationNotFound = errors.New("presentation not found")
)

// PresentationLoader reads a deck from disk
type PresentationLoader interface {
	// Load reads and returns a presentation from the given path
	Load(ctx context.Context, path string) (*entities.Presentation, error)
}

// SlideRepository persists slides with optimistic concurrency
type SlideRepository interface {
	// PutPresentation stores a whole deck, replacing any previous copy
	PutPresentation(ctx context.Context, p *entities.Presentation) error

	// GetPresentation returns the deck with its slides ordered by index
	GetPresentation(ctx context.Context, id string) (*entities.Presentation, error)

	// GetSlide returns a single slide
	GetSlide(ctx context.Context, presentationID string, index int) (*entities.Slide, error)

	// SaveSlide stores the content when the stored version equals
	// req.Metadata.Version, bumping the version by one. A mismatch returns a
	// *entities.SaveError with Conflict set and the current version. Saving
	// at index == slide count with base version 0 appends a new slide.
	SaveSlide(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error)

	Close() error
}
