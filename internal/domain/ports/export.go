package ports

import (
	"context"
	"io"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// PageFactory opens off-screen pages to rasterize slides in
type PageFactory interface {
	// NewPage opens a page with a viewport of size CSS pixels rendered at pixelRatio
	NewPage(ctx context.Context, size entities.Size, pixelRatio float64) (OffscreenPage, error)
	Name() string
	Close() error
}

// OffscreenPage is one detached render target. Callers must Close it on
// every path.
type OffscreenPage interface {
	// Load replaces the page document and waits until fonts and layout settle
	Load(ctx context.Context, html string) error
	// Capture returns a PNG of the element matching selector
	Capture(ctx context.Context, selector string) ([]byte, error)
	// Close detaches the page. ctx bounds the close itself and must not be
	// the render context, which may already be done.
	Close(ctx context.Context) error
}

// DeckWriter assembles rendered slide images into a deck file
type DeckWriter interface {
	// Write emits the deck. images are PNGs in slide order.
	Write(ctx context.Context, w io.Writer, meta DeckMeta, images [][]byte) error
	Format() entities.ExportFormat
	MimeType() string
}

// DeckMeta is the document-level information embedded in an exported deck
type DeckMeta struct {
	Title  string
	Author string
}
