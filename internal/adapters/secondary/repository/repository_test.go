package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
	"github.com/fredcamaral/slidekit/internal/test/builders"
	"github.com/fredcamaral/slidekit/internal/test/clock"
)

var start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func implementations(t *testing.T) map[string]func(*clock.Fake) ports.SlideRepository {
	return map[string]func(*clock.Fake) ports.SlideRepository{
		"memory": func(c *clock.Fake) ports.SlideRepository {
			return NewMemoryRepository(c, nil)
		},
		"sqlite": func(c *clock.Fake) ports.SlideRepository {
			repo, err := OpenSQLite(filepath.Join(t.TempDir(), "decks.db"), c, nil)
			require.NoError(t, err)
			return repo
		},
	}
}

func sampleDeck() *entities.Presentation {
	return builders.NewPresentationBuilder().
		WithTitle("Quarterly").
		WithAuthor("Ops").
		WithSlide(builders.NewSlideBuilder().WithID("s1").WithHTML("<h1>One</h1>").WithVersion(3).Build()).
		WithSlide(builders.NewSlideBuilder().WithID("s2").WithHTML("<h1>Two</h1>").Build()).
		Build()
}

func TestRepository_PutAndGet(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(clock.NewFake(start))
			defer func() { _ = repo.Close() }()

			require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))

			p, err := repo.GetPresentation(ctx, "deck-1")
			require.NoError(t, err)
			assert.Equal(t, "Quarterly", p.Title)
			assert.Equal(t, "Ops", p.Author)
			require.Len(t, p.Slides, 2)
			assert.Equal(t, 1, p.Slides[1].Index)
			assert.Equal(t, 3, p.Slides[0].Metadata.Version)

			s, err := repo.GetSlide(ctx, "deck-1", 1)
			require.NoError(t, err)
			assert.Equal(t, "s2", s.ID)
			assert.Equal(t, "<h1>Two</h1>", s.HTMLContent)
		})
	}
}

func TestRepository_SaveBumpsVersion(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := clock.NewFake(start)
			repo := open(clk)
			defer func() { _ = repo.Close() }()
			require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))

			clk.Advance(time.Minute)
			res, err := repo.SaveSlide(ctx, entities.SaveRequest{
				PresentationID: "deck-1",
				SlideIndex:     0,
				HTMLContent:    "<h1>Uno</h1>",
				Metadata:       entities.SaveMetadata{EditedBy: "ana", Version: 3},
			})
			require.NoError(t, err)
			assert.Equal(t, "s1", res.SlideID)
			assert.Equal(t, 4, res.Version)
			assert.True(t, res.SavedAt.Equal(start.Add(time.Minute)))

			s, err := repo.GetSlide(ctx, "deck-1", 0)
			require.NoError(t, err)
			assert.Equal(t, "<h1>Uno</h1>", s.HTMLContent)
			assert.Equal(t, 4, s.Metadata.Version)
			assert.Equal(t, "ana", s.Metadata.EditedBy)
			assert.True(t, s.Metadata.LastEditedAt.Equal(start.Add(time.Minute)))
		})
	}
}

func TestRepository_StaleSaveConflicts(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(clock.NewFake(start))
			defer func() { _ = repo.Close() }()
			require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))

			save := func(html string, base int) error {
				_, err := repo.SaveSlide(ctx, entities.SaveRequest{
					PresentationID: "deck-1",
					SlideIndex:     1,
					HTMLContent:    html,
					Metadata:       entities.SaveMetadata{Version: base},
				})
				return err
			}

			// two editors loaded version 0; the second one loses
			require.NoError(t, save("<h1>First</h1>", 0))
			err := save("<h1>Second</h1>", 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entities.ErrConflict))

			var saveErr *entities.SaveError
			require.True(t, errors.As(err, &saveErr))
			assert.Equal(t, 1, saveErr.CurrentVersion)
			assert.Equal(t, 409, saveErr.StatusCode)

			s, err := repo.GetSlide(ctx, "deck-1", 1)
			require.NoError(t, err)
			assert.Equal(t, "<h1>First</h1>", s.HTMLContent)
			assert.Equal(t, 1, s.Metadata.Version)
		})
	}
}

func TestRepository_AppendAtEnd(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(clock.NewFake(start))
			defer func() { _ = repo.Close() }()
			require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))

			res, err := repo.SaveSlide(ctx, entities.SaveRequest{
				PresentationID: "deck-1",
				SlideIndex:     2,
				HTMLContent:    "<h1>Three</h1>",
			})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Version)
			assert.NotEmpty(t, res.SlideID)

			p, err := repo.GetPresentation(ctx, "deck-1")
			require.NoError(t, err)
			require.Len(t, p.Slides, 3)
			assert.Equal(t, "<h1>Three</h1>", p.Slides[2].HTMLContent)

			_, err = repo.SaveSlide(ctx, entities.SaveRequest{
				PresentationID: "deck-1",
				SlideIndex:     7,
				HTMLContent:    "<h1>Gap</h1>",
			})
			assert.ErrorIs(t, err, ports.ErrSlideNotFound)
		})
	}
}

func TestRepository_NotFound(t *testing.T) {
	for name, open := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(clock.NewFake(start))
			defer func() { _ = repo.Close() }()
			require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))

			_, err := repo.GetPresentation(ctx, "nope")
			assert.ErrorIs(t, err, ports.ErrPresentationNotFound)

			_, err = repo.GetSlide(ctx, "nope", 0)
			assert.ErrorIs(t, err, ports.ErrPresentationNotFound)

			_, err = repo.GetSlide(ctx, "deck-1", 5)
			assert.ErrorIs(t, err, ports.ErrSlideNotFound)

			_, err = repo.SaveSlide(ctx, entities.SaveRequest{
				PresentationID: "nope",
				HTMLContent:    "<p>x</p>",
			})
			assert.ErrorIs(t, err, ports.ErrPresentationNotFound)
		})
	}
}

func TestRepository_InvalidRequest(t *testing.T) {
	repo := NewMemoryRepository(clock.NewFake(start), nil)
	_, err := repo.SaveSlide(context.Background(), entities.SaveRequest{PresentationID: "deck-1"})

	var saveErr *entities.SaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, 400, saveErr.StatusCode)
	assert.False(t, errors.Is(err, entities.ErrConflict))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "decks.db")

	repo, err := OpenSQLite(path, clock.NewFake(start), nil)
	require.NoError(t, err)
	require.NoError(t, repo.PutPresentation(ctx, sampleDeck()))
	_, err = repo.SaveSlide(ctx, entities.SaveRequest{
		PresentationID: "deck-1",
		SlideIndex:     1,
		HTMLContent:    "<h1>Kept</h1>",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := OpenSQLite(path, clock.NewFake(start), nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	s, err := reopened.GetSlide(ctx, "deck-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Kept</h1>", s.HTMLContent)
	assert.Equal(t, 1, s.Metadata.Version)
}
