package entities

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ReferenceWidth and ReferenceHeight are the logical slide size every slide is authored at.
const (
	ReferenceWidth  = 1280
	ReferenceHeight = 720
)

// Slide represents a single slide in a presentation
type Slide struct {
	// ID is a unique identifier for the slide
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// HTMLContent is the full slide document rendered inside the frame
	HTMLContent string `json:"htmlContent" yaml:"html"`

	// Index is the slide position in the presentation (0-based)
	Index int `json:"index" yaml:"index"`

	// Metadata carries the optimistic-concurrency token and edit provenance
	Metadata SlideMetadata `json:"metadata" yaml:"metadata,omitempty"`
}

// SlideMetadata describes the last persisted edit of a slide.
// Version increases by one on every successful save and is never touched by the editor.
type SlideMetadata struct {
	LastEditedAt time.Time `json:"lastEditedAt" yaml:"last_edited_at,omitempty"`
	EditedBy     string    `json:"editedBy,omitempty" yaml:"edited_by,omitempty"`
	Version      int       `json:"version" yaml:"version,omitempty"`
}

// Validate ensures the slide has valid content
func (s *Slide) Validate() error {
	if strings.TrimSpace(s.HTMLContent) == "" {
		return errors.New("slide content cannot be empty")
	}

	if s.Index < 0 {
		return errors.New("slide index must be non-negative")
	}

	if s.Metadata.Version < 0 {
		return errors.New("slide version must be non-negative")
	}

	return nil
}

// Title returns the text of the first heading in the slide, or a generated title
func (s *Slide) Title() string {
	doc, err := html.Parse(strings.NewReader(s.HTMLContent))
	if err == nil {
		if title := firstHeading(doc); title != "" {
			return title
		}
	}

	return "Slide " + strconv.Itoa(s.Index+1)
}

func firstHeading(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3":
			return strings.TrimSpace(nodeText(n))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstHeading(c); t != "" {
			return t
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
