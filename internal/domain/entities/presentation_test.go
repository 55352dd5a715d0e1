package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func() *Presentation
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid presentation",
			setup: func() *Presentation {
				return &Presentation{
					Title:  "Quarterly Review",
					Slides: []Slide{{HTMLContent: "<h1>Q3</h1>", Index: 0}},
				}
			},
		},
		{
			name: "missing title",
			setup: func() *Presentation {
				return &Presentation{Slides: []Slide{{HTMLContent: "<h1>Q3</h1>"}}}
			},
			wantErr: true,
			errMsg:  "presentation title is required",
		},
		{
			name: "no slides",
			setup: func() *Presentation {
				return &Presentation{Title: "Quarterly Review"}
			},
			wantErr: true,
			errMsg:  "presentation must have at least one slide",
		},
		{
			name: "invalid slide",
			setup: func() *Presentation {
				return &Presentation{
					Title:  "Quarterly Review",
					Slides: []Slide{{HTMLContent: "<h1>ok</h1>"}, {HTMLContent: "   "}},
				}
			},
			wantErr: true,
			errMsg:  "slide 2 validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup().Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPresentation_GetSlideByIndex(t *testing.T) {
	p := &Presentation{
		Title:  "Deck",
		Slides: []Slide{{HTMLContent: "<p>a</p>"}, {HTMLContent: "<p>b</p>"}},
	}
	p.Reindex()

	slide, err := p.GetSlideByIndex(1)
	require.NoError(t, err)
	assert.Equal(t, 1, slide.Index)
	assert.Equal(t, "<p>b</p>", slide.HTMLContent)

	_, err = p.GetSlideByIndex(2)
	assert.Error(t, err)
	assert.Equal(t, 2, p.SlideCount())
}

func TestSlide_Title(t *testing.T) {
	t.Run("first heading", func(t *testing.T) {
		s := Slide{HTMLContent: `<div><p>intro</p><h2> Roadmap </h2><h1>Later</h1></div>`}
		assert.Equal(t, "Roadmap", s.Title())
	})

	t.Run("generated when no heading", func(t *testing.T) {
		s := Slide{HTMLContent: `<p>just text</p>`, Index: 3}
		assert.Equal(t, "Slide 4", s.Title())
	})
}
