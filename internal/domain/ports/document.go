package ports

import (
	"context"
	"errors"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

var (
	// ErrFrameClosed is returned once the frame document is unmounted or unreachable
	ErrFrameClosed = errors.New("frame document is not accessible")

	// ErrElementNotFound is returned when an element path no longer resolves
	ErrElementNotFound = errors.New("element not found")
)

// DocumentHandle is the host's reference to the frame document. Every call
// crosses into the frame's own goroutine; nothing returned aliases the tree.
type DocumentHandle interface {
	// Describe returns the descriptor of the element at path
	Describe(ctx context.Context, path string) (entities.ElementData, error)

	// SetText replaces the element's children with a single text node
	SetText(ctx context.Context, path, text string) error

	// InnerHTML renders the element's children
	InnerHTML(ctx context.Context, path string) (string, error)

	// SetInnerHTML replaces the element's children with the parsed markup
	SetInnerHTML(ctx context.Context, path, markup string) error

	// SetStyles writes inline style properties. An empty value removes the property.
	SetStyles(ctx context.Context, path string, styles map[string]string) error

	// InlineStyles returns the current value of each named inline property
	InlineStyles(ctx context.Context, path string, props []string) (map[string]string, error)

	// Remove detaches the element and reports where it lived
	Remove(ctx context.Context, path string) (entities.RemovedElement, error)

	// Insert parses removed.OuterHTML and puts it back at its recorded position
	Insert(ctx context.Context, removed entities.RemovedElement) error

	// Siblings describes the other element children of the element's parent
	Siblings(ctx context.Context, path string) ([]entities.ElementData, error)

	// Serialize returns the document HTML. With clean set, editor-only
	// attributes are stripped first.
	Serialize(ctx context.Context, clean bool) (string, error)
}

// MessagePort is the host end of the frame message channel
type MessagePort interface {
	// Post sends a copy of msg to the frame
	Post(msg entities.Message) error

	// C delivers trusted messages from the frame; closed when the frame unmounts
	C() <-chan entities.Message
}
