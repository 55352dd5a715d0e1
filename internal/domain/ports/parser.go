package ports

import (
	"context"
)

// MarkdownParser defines the interface for parsing markdown content
type MarkdownParser interface {
	Parse(ctx context.Context, content []byte) (*ParsedContent, error)
}

// ParsedContent represents the result of parsing a markdown file
type ParsedContent struct {
	Frontmatter map[string]interface{}
	Slides      []RawSlide
}

// RawSlide is one rendered slide body before it is wrapped into a document
type RawSlide struct {
	HTML  string
	Index int
}
