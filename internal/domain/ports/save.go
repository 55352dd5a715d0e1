package ports

import (
	"context"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// SaveClient sends slide content to the persistence API
type SaveClient interface {
	// Save issues PUT /slides/save. Conflicts surface as errors matching
	// entities.ErrConflict.
	Save(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error)

	// Fetch loads the server copy of a slide
	Fetch(ctx context.Context, presentationID string, index int) (*entities.Slide, error)
}
