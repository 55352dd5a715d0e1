package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// deckFile is the on-disk shape of a YAML or JSON deck
type deckFile struct {
	ID     string      `yaml:"id" json:"id"`
	Title  string      `yaml:"title" json:"title"`
	Author string      `yaml:"author" json:"author"`
	Date   string      `yaml:"date" json:"date"`
	Slides []deckSlide `yaml:"slides" json:"slides"`
}

// deckSlide carries exactly one of HTML, Markdown or File
type deckSlide struct {
	ID       string `yaml:"id" json:"id"`
	HTML     string `yaml:"html" json:"html"`
	Markdown string `yaml:"markdown" json:"markdown"`
	File     string `yaml:"file" json:"file"`
	Version  int    `yaml:"version" json:"version"`
}

// DeckLoader reads presentations from .md, .yaml/.yml and .json files
type DeckLoader struct {
	markdown  *GoldmarkParser
	templates *renderer.TemplateRenderer
	logger    *slog.Logger
}

var _ ports.PresentationLoader = (*DeckLoader)(nil)

// NewDeckLoader creates a loader
func NewDeckLoader(markdown *GoldmarkParser, templates *renderer.TemplateRenderer, logger *slog.Logger) *DeckLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckLoader{
		markdown:  markdown,
		templates: templates,
		logger:    logger.With("service", "deck_loader"),
	}
}

// Load reads and returns the presentation at path
func (l *DeckLoader) Load(ctx context.Context, path string) (*entities.Presentation, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}

	var p *entities.Presentation
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".md", ".markdown":
		p, err = l.fromMarkdown(ctx, path, data)
	case ".yaml", ".yml":
		var deck deckFile
		if err := yaml.Unmarshal(data, &deck); err != nil {
			return nil, fmt.Errorf("parsing YAML deck: %w", err)
		}
		p, err = l.fromDeck(ctx, path, &deck)
	case ".json":
		var deck deckFile
		if err := json.Unmarshal(data, &deck); err != nil {
			return nil, fmt.Errorf("parsing JSON deck: %w", err)
		}
		p, err = l.fromDeck(ctx, path, &deck)
	default:
		return nil, fmt.Errorf("unsupported deck format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	p.Reindex()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid presentation: %w", err)
	}

	l.logger.Info("deck loaded", "path", path, "id", p.ID, "slides", len(p.Slides))
	return p, nil
}

func (l *DeckLoader) fromMarkdown(ctx context.Context, path string, data []byte) (*entities.Presentation, error) {
	parsed, err := l.markdown.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parsing markdown deck: %w", err)
	}

	p := &entities.Presentation{
		ID:     stringField(parsed.Frontmatter, "id"),
		Title:  stringField(parsed.Frontmatter, "title"),
		Author: stringField(parsed.Frontmatter, "author"),
		Date:   parseDate(stringField(parsed.Frontmatter, "date")),
	}
	l.fillDefaults(p, path)

	for _, raw := range parsed.Slides {
		doc, err := l.documentFromFragment(p.Title, raw.HTML)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", raw.Index+1, err)
		}
		p.Slides = append(p.Slides, entities.Slide{HTMLContent: doc})
	}
	return p, nil
}

func (l *DeckLoader) fromDeck(ctx context.Context, path string, deck *deckFile) (*entities.Presentation, error) {
	p := &entities.Presentation{
		ID:     deck.ID,
		Title:  deck.Title,
		Author: deck.Author,
		Date:   parseDate(deck.Date),
	}
	l.fillDefaults(p, path)

	dir := filepath.Dir(path)
	for i, s := range deck.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.slideDocument(p.Title, dir, s)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		p.Slides = append(p.Slides, entities.Slide{
			ID:          s.ID,
			HTMLContent: doc,
			Metadata:    entities.SlideMetadata{Version: s.Version},
		})
	}
	return p, nil
}

func (l *DeckLoader) slideDocument(title, dir string, s deckSlide) (string, error) {
	switch {
	case s.File != "":
		data, err := readInside(dir, s.File)
		if err != nil {
			return "", err
		}
		if ext := strings.ToLower(filepath.Ext(s.File)); ext == ".md" || ext == ".markdown" {
			return l.markdownDocument(title, string(data))
		}
		return l.htmlDocument(title, string(data))
	case s.Markdown != "":
		return l.markdownDocument(title, s.Markdown)
	case s.HTML != "":
		return l.htmlDocument(title, s.HTML)
	default:
		return "", errors.New("slide needs html, markdown or file")
	}
}

func (l *DeckLoader) markdownDocument(title, markdown string) (string, error) {
	fragment, err := l.markdown.Render(stripNotes(markdown))
	if err != nil {
		return "", err
	}
	return l.documentFromFragment(title, fragment)
}

func (l *DeckLoader) documentFromFragment(title, fragment string) (string, error) {
	arranged, err := arrangeBlocks(fragment)
	if err != nil {
		return "", err
	}
	return l.templates.SlideDocument(title, arranged)
}

// htmlDocument keeps complete documents as authored and wraps fragments
func (l *DeckLoader) htmlDocument(title, src string) (string, error) {
	lower := strings.ToLower(src)
	if strings.Contains(lower, "<body") || strings.Contains(lower, "<html") {
		return src, nil
	}
	return l.templates.SlideDocument(title, src)
}

func (l *DeckLoader) fillDefaults(p *entities.Presentation, path string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p.ID == "" {
		p.ID = slugify(base)
	}
	if p.Title == "" {
		words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
		p.Title = cases.Title(language.English).String(strings.Join(words, " "))
	}
}

// readInside reads name relative to dir, refusing paths that leave dir
func readInside(dir, name string) ([]byte, error) {
	full := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("slide file %s is outside the deck directory", name)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading slide file: %w", err)
	}
	return data, nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case time.Time:
		// yaml.v3 decodes bare dates into time.Time
		return v.Format("2006-01-02")
	default:
		return ""
	}
}
