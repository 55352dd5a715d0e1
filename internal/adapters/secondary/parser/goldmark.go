// Package parser loads decks from disk: YAML or JSON deck files and
// markdown decks rendered with goldmark.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// notePrefix marks speaker-note lines, which never reach the slide
const notePrefix = "Note:"

// GoldmarkParser implements the MarkdownParser interface using Goldmark
type GoldmarkParser struct {
	md goldmark.Markdown
}

var _ ports.MarkdownParser = (*GoldmarkParser)(nil)

// NewGoldmarkParser creates a new Goldmark-based markdown parser
func NewGoldmarkParser() *GoldmarkParser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(), // raw HTML in decks is sanitized on save, not here
		),
	)

	return &GoldmarkParser{md: md}
}

// Parse splits content into slides on "---" lines and renders each one
func (p *GoldmarkParser) Parse(ctx context.Context, content []byte) (*ports.ParsedContent, error) {
	frontmatter, remaining := extractFrontmatter(content)

	chunks := splitSlides(remaining)
	slides := make([]ports.RawSlide, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rendered, err := p.Render(stripNotes(string(chunk)))
		if err != nil {
			return nil, fmt.Errorf("parsing slide %d: %w", i, err)
		}
		slides = append(slides, ports.RawSlide{HTML: rendered, Index: i})
	}

	return &ports.ParsedContent{
		Frontmatter: frontmatter,
		Slides:      slides,
	}, nil
}

// Render converts one markdown slide body to an HTML fragment
func (p *GoldmarkParser) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

func stripNotes(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), notePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// extractFrontmatter extracts YAML frontmatter from markdown content
func extractFrontmatter(content []byte) (map[string]interface{}, []byte) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, content
	}

	lines := bytes.Split(content, []byte("\n"))
	endIndex := -1
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			endIndex = i
			break
		}
	}
	if endIndex == -1 {
		return nil, content
	}

	raw := bytes.Join(lines[1:endIndex], []byte("\n"))

	var frontmatter map[string]interface{}
	if len(bytes.TrimSpace(raw)) == 0 {
		frontmatter = make(map[string]interface{})
	} else if err := yaml.Unmarshal(raw, &frontmatter); err != nil {
		return nil, content
	}

	return frontmatter, bytes.Join(lines[endIndex+1:], []byte("\n"))
}

// splitSlides splits content into individual slides
func splitSlides(content []byte) [][]byte {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	var slides [][]byte
	for _, chunk := range strings.Split(text, "\n---\n") {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			slides = append(slides, []byte(trimmed))
		}
	}

	if len(slides) == 0 {
		return [][]byte{content}
	}
	return slides
}
