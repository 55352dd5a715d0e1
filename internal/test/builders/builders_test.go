package builders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentationBuilder(t *testing.T) {
	t.Run("builds presentation with defaults", func(t *testing.T) {
		presentation := NewPresentationBuilder().Build()

		assert.Equal(t, "deck-1", presentation.ID)
		assert.Equal(t, "Test Presentation", presentation.Title)
		assert.Equal(t, "Test Author", presentation.Author)
		assert.Empty(t, presentation.Slides)
	})

	t.Run("builds presentation with custom values", func(t *testing.T) {
		customDate := time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)

		presentation := NewPresentationBuilder().
			WithID("q3").
			WithTitle("Custom Title").
			WithAuthor("Custom Author").
			WithDate(customDate).
			WithSlideCount(3).
			Build()

		assert.Equal(t, "q3", presentation.ID)
		assert.Equal(t, "Custom Title", presentation.Title)
		assert.Equal(t, "Custom Author", presentation.Author)
		assert.Equal(t, customDate, presentation.Date)
		require.Len(t, presentation.Slides, 3)
		assert.Equal(t, "Slide 2", presentation.Slides[1].Title())
		assert.NoError(t, presentation.Validate())
	})

	t.Run("indexes slides in order", func(t *testing.T) {
		presentation := NewPresentationBuilder().
			WithSlide(NewSlideBuilder().WithID("a").Build()).
			WithSlideCount(2).
			Build()

		require.Len(t, presentation.Slides, 3)
		for i, s := range presentation.Slides {
			assert.Equal(t, i, s.Index)
		}
		assert.Equal(t, "slide-3", presentation.Slides[2].ID)
	})

	t.Run("build returns independent copies", func(t *testing.T) {
		b := NewPresentationBuilder().WithSlideCount(1)
		first := b.Build()
		first.Slides[0].ID = "changed"

		assert.Equal(t, "slide-1", b.Build().Slides[0].ID)
	})

	t.Run("helpers", func(t *testing.T) {
		assert.Len(t, MinimalPresentation().Slides, 1)
		assert.Len(t, LargePresentation().Slides, 50)
	})
}

func TestSlideBuilder(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	slide := NewSlideBuilder().
		WithID("intro").
		WithHeading("Welcome").
		WithVersion(4).
		EditedBy("ana", at).
		Build()

	assert.Equal(t, "intro", slide.ID)
	assert.Equal(t, "Welcome", slide.Title())
	assert.Equal(t, 4, slide.Metadata.Version)
	assert.Equal(t, "ana", slide.Metadata.EditedBy)
	assert.Equal(t, at, slide.Metadata.LastEditedAt)
	assert.Contains(t, slide.HTMLContent, "<body><h1>Welcome</h1></body>")

	custom := NewSlideBuilder().WithHTML("<p>raw</p>").Build()
	assert.Equal(t, "<p>raw</p>", custom.HTMLContent)
}
