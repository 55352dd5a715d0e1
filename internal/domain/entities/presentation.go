package entities

import (
	"errors"
	"fmt"
	"time"
)

// Presentation represents an ordered deck of HTML slides
type Presentation struct {
	// ID is a unique identifier for the presentation
	ID string `yaml:"id" json:"id,omitempty"`

	// Title is the presentation title
	Title string `yaml:"title" json:"title"`

	// Author is the presentation creator
	Author string `yaml:"author" json:"author,omitempty"`

	// Date is when the presentation was created/updated
	Date time.Time `yaml:"date" json:"date"`

	// Slides contains all presentation slides in order
	Slides []Slide `yaml:"slides" json:"slides"`
}

// Validate ensures the presentation has valid required fields
func (p *Presentation) Validate() error {
	if p.Title == "" {
		return errors.New("presentation title is required")
	}

	if len(p.Slides) == 0 {
		return errors.New("presentation must have at least one slide")
	}

	for i, slide := range p.Slides {
		if err := slide.Validate(); err != nil {
			return fmt.Errorf("slide %d validation failed: %w", i+1, err)
		}
	}

	return nil
}

// GetSlideByIndex returns a slide by its index (0-based)
func (p *Presentation) GetSlideByIndex(index int) (*Slide, error) {
	if index < 0 || index >= len(p.Slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(p.Slides)-1)
	}
	return &p.Slides[index], nil
}

// SlideCount returns the total number of slides
func (p *Presentation) SlideCount() int {
	return len(p.Slides)
}

// Reindex rewrites every slide's Index to match its position
func (p *Presentation) Reindex() {
	for i := range p.Slides {
		p.Slides[i].Index = i
	}
}
