package surface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/bridge"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/dom"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Frame is an isolated slide document with its own event loop. The loop
// goroutine is the only code that touches the document; the host reaches
// it through the DocumentHandle methods and the message channel.
type Frame struct {
	doc   *dom.Document
	host  *bridge.Endpoint
	port  *bridge.Endpoint
	calls chan func()

	// owned by the loop goroutine
	editMode bool
	selected *html.Node

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *slog.Logger
}

var _ ports.DocumentHandle = (*Frame)(nil)

// NewFrame parses content and starts the frame's event loop. The frame is
// closed when ctx is cancelled or Close is called.
func NewFrame(ctx context.Context, content, origin string, logger *slog.Logger) (*Frame, error) {
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := dom.Parse(content)
	if err != nil {
		return nil, err
	}

	host, port := bridge.Pipe(origin, logger)
	f := &Frame{
		doc:    doc,
		host:   host,
		port:   port,
		calls:  make(chan func()),
		done:   make(chan struct{}),
		logger: logger.With("component", "frame"),
	}

	f.wg.Add(2)
	go f.loop()
	go func() {
		defer f.wg.Done()
		select {
		case <-ctx.Done():
			f.Close()
		case <-f.done:
		}
	}()

	return f, nil
}

// Host returns the host end of the frame's message channel
func (f *Frame) Host() ports.MessagePort {
	return f.host
}

// HostEndpoint exposes the concrete host endpoint, for origin-check tooling
func (f *Frame) HostEndpoint() *bridge.Endpoint {
	return f.host
}

// Close stops the event loop and both channel endpoints
func (f *Frame) Close() {
	f.closeOnce.Do(func() {
		close(f.done)
		f.host.Close()
	})
}

// Done is closed once the frame has been released
func (f *Frame) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the frame's goroutines have exited
func (f *Frame) Wait() {
	f.wg.Wait()
}

func (f *Frame) loop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		case fn := <-f.calls:
			fn()
		case msg, ok := <-f.port.C():
			if !ok {
				return
			}
			f.handleMessage(msg)
		}
	}
}

// do runs fn on the loop goroutine and waits for it
func (f *Frame) do(ctx context.Context, fn func(doc *dom.Document) error) error {
	errc := make(chan error, 1)
	call := func() { errc <- fn(f.doc) }

	select {
	case f.calls <- call:
	case <-f.done:
		return ports.ErrFrameClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-f.done:
		return ports.ErrFrameClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Frame) resolve(doc *dom.Document, path string) (*html.Node, error) {
	n := doc.Resolve(path)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrElementNotFound, path)
	}
	return n, nil
}

// Describe returns the descriptor of the element at path
func (f *Frame) Describe(ctx context.Context, path string) (entities.ElementData, error) {
	var out entities.ElementData
	err := f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		out = doc.Describe(n)
		return nil
	})
	return out, err
}

// SetText replaces the element's content with text
func (f *Frame) SetText(ctx context.Context, path, text string) error {
	return f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		dom.SetText(n, text)
		return nil
	})
}

// InnerHTML renders the element's children
func (f *Frame) InnerHTML(ctx context.Context, path string) (string, error) {
	var out string
	err := f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		out, err = dom.InnerHTML(n)
		return err
	})
	return out, err
}

// SetInnerHTML replaces the element's children with markup
func (f *Frame) SetInnerHTML(ctx context.Context, path, markup string) error {
	return f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		return dom.SetInnerHTML(n, markup)
	})
}

// SetStyles writes inline properties; empty values remove them
func (f *Frame) SetStyles(ctx context.Context, path string, styles map[string]string) error {
	return f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		for prop, value := range styles {
			dom.SetStyle(n, prop, value)
		}
		return nil
	})
}

// InlineStyles reads the inline value of each property
func (f *Frame) InlineStyles(ctx context.Context, path string, props []string) (map[string]string, error) {
	out := make(map[string]string, len(props))
	err := f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		for _, prop := range props {
			out[prop] = dom.InlineStyle(n, prop)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove detaches the element at path
func (f *Frame) Remove(ctx context.Context, path string) (entities.RemovedElement, error) {
	var out entities.RemovedElement
	err := f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		if n == f.selected {
			f.selected = nil
		}
		out, err = doc.Remove(n)
		return err
	})
	return out, err
}

// Insert restores a removed element
func (f *Frame) Insert(ctx context.Context, removed entities.RemovedElement) error {
	return f.do(ctx, func(doc *dom.Document) error {
		_, err := doc.Insert(removed)
		return err
	})
}

// Siblings describes the other element children of the element's parent
func (f *Frame) Siblings(ctx context.Context, path string) ([]entities.ElementData, error) {
	var out []entities.ElementData
	err := f.do(ctx, func(doc *dom.Document) error {
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		out = doc.Siblings(n)
		return nil
	})
	return out, err
}

// Serialize returns the document markup
func (f *Frame) Serialize(ctx context.Context, clean bool) (string, error) {
	var out string
	err := f.do(ctx, func(doc *dom.Document) error {
		var err error
		out, err = doc.Render(clean)
		return err
	})
	return out, err
}
