// Package builders provides fluent constructors for deck fixtures used in tests.
package builders

import (
	"fmt"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// PresentationBuilder helps build Presentation entities for testing
type PresentationBuilder struct {
	presentation *entities.Presentation
}

// NewPresentationBuilder creates a new presentation builder with sensible defaults
func NewPresentationBuilder() *PresentationBuilder {
	return &PresentationBuilder{
		presentation: &entities.Presentation{
			ID:     "deck-1",
			Title:  "Test Presentation",
			Author: "Test Author",
			Date:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Slides: []entities.Slide{},
		},
	}
}

// WithID sets the presentation ID
func (b *PresentationBuilder) WithID(id string) *PresentationBuilder {
	b.presentation.ID = id
	return b
}

// WithTitle sets the presentation title
func (b *PresentationBuilder) WithTitle(title string) *PresentationBuilder {
	b.presentation.Title = title
	return b
}

// WithAuthor sets the presentation author
func (b *PresentationBuilder) WithAuthor(author string) *PresentationBuilder {
	b.presentation.Author = author
	return b
}

// WithDate sets the presentation date
func (b *PresentationBuilder) WithDate(date time.Time) *PresentationBuilder {
	b.presentation.Date = date
	return b
}

// WithSlide appends a slide; its Index is assigned on Build
func (b *PresentationBuilder) WithSlide(slide entities.Slide) *PresentationBuilder {
	b.presentation.Slides = append(b.presentation.Slides, slide)
	return b
}

// WithSlideCount appends count default slides titled "Slide N"
func (b *PresentationBuilder) WithSlideCount(count int) *PresentationBuilder {
	start := len(b.presentation.Slides)
	for i := 0; i < count; i++ {
		n := start + i + 1
		b.presentation.Slides = append(b.presentation.Slides, NewSlideBuilder().
			WithID(fmt.Sprintf("slide-%d", n)).
			WithHeading(fmt.Sprintf("Slide %d", n)).
			Build())
	}
	return b
}

// Build creates the final Presentation entity
func (b *PresentationBuilder) Build() *entities.Presentation {
	p := *b.presentation
	p.Slides = append([]entities.Slide{}, b.presentation.Slides...)
	p.Reindex()
	return &p
}

// SlideBuilder helps build Slide entities for testing
type SlideBuilder struct {
	slide entities.Slide
}

// NewSlideBuilder creates a new slide builder with sensible defaults
func NewSlideBuilder() *SlideBuilder {
	return &SlideBuilder{
		slide: entities.Slide{
			ID:          "slide-1",
			HTMLContent: SlideDocument("<h1>Test Slide</h1>"),
		},
	}
}

// WithID sets the slide ID
func (b *SlideBuilder) WithID(id string) *SlideBuilder {
	b.slide.ID = id
	return b
}

// WithHTML sets the full slide document
func (b *SlideBuilder) WithHTML(html string) *SlideBuilder {
	b.slide.HTMLContent = html
	return b
}

// WithHeading replaces the body with a single h1
func (b *SlideBuilder) WithHeading(title string) *SlideBuilder {
	b.slide.HTMLContent = SlideDocument("<h1>" + title + "</h1>")
	return b
}

// WithVersion sets the stored version
func (b *SlideBuilder) WithVersion(version int) *SlideBuilder {
	b.slide.Metadata.Version = version
	return b
}

// EditedBy records the last editor and edit time
func (b *SlideBuilder) EditedBy(user string, at time.Time) *SlideBuilder {
	b.slide.Metadata.EditedBy = user
	b.slide.Metadata.LastEditedAt = at
	return b
}

// Build creates the final Slide entity
func (b *SlideBuilder) Build() entities.Slide {
	return b.slide
}

// SlideDocument wraps body markup in a minimal slide document
func SlideDocument(body string) string {
	return "<!DOCTYPE html><html><head><style>body{margin:0}</style></head><body>" + body + "</body></html>"
}

// MinimalPresentation creates a minimal presentation for basic tests
func MinimalPresentation() *entities.Presentation {
	return NewPresentationBuilder().
		WithTitle("Minimal").
		WithSlideCount(1).
		Build()
}

// LargePresentation creates a presentation with many slides for load tests
func LargePresentation() *entities.Presentation {
	return NewPresentationBuilder().
		WithTitle("Large Presentation").
		WithSlideCount(50).
		Build()
}
