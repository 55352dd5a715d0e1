package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

type fakeElement struct {
	id     string
	text   string
	styles map[string]string
	rect   entities.Rect
}

// fakeDocument is a flat, in-memory DocumentHandle keyed by element path
type fakeDocument struct {
	mu       sync.Mutex
	order    []string
	elements map[string]*fakeElement
	closed   bool
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{elements: make(map[string]*fakeElement)}
}

func (d *fakeDocument) add(path, text string, rect entities.Rect) *fakeDocument {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := ""
	if strings.HasPrefix(path, "#") {
		id = path[1:]
	}
	d.order = append(d.order, path)
	d.elements[path] = &fakeElement{id: id, text: text, styles: map[string]string{}, rect: rect}
	return d
}

func (d *fakeDocument) get(path string) (*fakeElement, error) {
	if d.closed {
		return nil, ports.ErrFrameClosed
	}
	el, ok := d.elements[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrElementNotFound, path)
	}
	return el, nil
}

func (d *fakeDocument) describe(path string, el *fakeElement) entities.ElementData {
	styles := make(map[string]string, len(el.styles))
	for k, v := range el.styles {
		styles[k] = v
	}
	return entities.ElementData{
		ID:             el.id,
		TagName:        "DIV",
		TextContent:    el.text,
		ElementPath:    path,
		BoundingRect:   el.rect,
		ComputedStyles: styles,
	}
}

func (d *fakeDocument) Describe(_ context.Context, path string) (entities.ElementData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return entities.ElementData{}, err
	}
	return d.describe(path, el), nil
}

func (d *fakeDocument) SetText(_ context.Context, path, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return err
	}
	el.text = text
	return nil
}

// the fake keeps markup and text in one field
func (d *fakeDocument) InnerHTML(_ context.Context, path string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return "", err
	}
	return el.text, nil
}

func (d *fakeDocument) SetInnerHTML(ctx context.Context, path, markup string) error {
	return d.SetText(ctx, path, markup)
}

func (d *fakeDocument) SetStyles(_ context.Context, path string, styles map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return err
	}
	for k, v := range styles {
		if v == "" {
			delete(el.styles, k)
		} else {
			el.styles[k] = v
		}
	}
	return nil
}

func (d *fakeDocument) InlineStyles(_ context.Context, path string, props []string) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p] = el.styles[p]
	}
	return out, nil
}

func (d *fakeDocument) Remove(_ context.Context, path string) (entities.RemovedElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.get(path)
	if err != nil {
		return entities.RemovedElement{}, err
	}
	index := 0
	for i, p := range d.order {
		if p == path {
			index = i
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	delete(d.elements, path)
	return entities.RemovedElement{OuterHTML: path + "|" + el.text, ParentPath: "body", Index: index}, nil
}

func (d *fakeDocument) Insert(_ context.Context, removed entities.RemovedElement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	path, text, _ := strings.Cut(removed.OuterHTML, "|")
	d.order = append(d.order[:removed.Index], append([]string{path}, d.order[removed.Index:]...)...)
	d.elements[path] = &fakeElement{text: text, styles: map[string]string{}}
	return nil
}

func (d *fakeDocument) Siblings(_ context.Context, path string) ([]entities.ElementData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.get(path); err != nil {
		return nil, err
	}
	var out []entities.ElementData
	for _, p := range d.order {
		if p != path {
			out = append(out, d.describe(p, d.elements[p]))
		}
	}
	return out, nil
}

func (d *fakeDocument) Serialize(_ context.Context, _ bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ports.ErrFrameClosed
	}
	var b strings.Builder
	for _, p := range d.order {
		el := d.elements[p]
		keys := make([]string, 0, len(el.styles))
		for k := range el.styles {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "<%s", p)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, el.styles[k])
		}
		fmt.Fprintf(&b, ">%s;", el.text)
	}
	return b.String(), nil
}

func (d *fakeDocument) move(path string, rect entities.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[path].rect = rect
}

// MockSaveClient mocks ports.SaveClient
type MockSaveClient struct {
	mock.Mock
}

func (m *MockSaveClient) Save(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*entities.SaveResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaveClient) Fetch(ctx context.Context, presentationID string, index int) (*entities.Slide, error) {
	args := m.Called(ctx, presentationID, index)
	if s := args.Get(0); s != nil {
		return s.(*entities.Slide), args.Error(1)
	}
	return nil, args.Error(1)
}
