package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Command is a reversible edit. Constructors capture the state the command
// overwrites, so Undo never depends on anything outside the command.
type Command interface {
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
	Description() string
}

// Redoer is implemented by commands whose redo differs from Execute
type Redoer interface {
	Redo(ctx context.Context) error
}

func redo(ctx context.Context, c Command) error {
	if r, ok := c.(Redoer); ok {
		return r.Redo(ctx)
	}
	return c.Execute(ctx)
}

// EditTextCommand replaces an element's content with plain text. Undo puts
// back the original children, inline markup included.
type EditTextCommand struct {
	doc     ports.DocumentHandle
	path    string
	oldHTML string
	newText string
}

// NewEditTextCommand snapshots the element's current children
func NewEditTextCommand(ctx context.Context, doc ports.DocumentHandle, path, newText string) (*EditTextCommand, error) {
	old, err := doc.InnerHTML(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("snapshotting text: %w", err)
	}
	return &EditTextCommand{doc: doc, path: path, oldHTML: old, newText: newText}, nil
}

func (c *EditTextCommand) Execute(ctx context.Context) error {
	return c.doc.SetText(ctx, c.path, c.newText)
}

func (c *EditTextCommand) Undo(ctx context.Context) error {
	return c.doc.SetInnerHTML(ctx, c.path, c.oldHTML)
}

func (c *EditTextCommand) Description() string {
	return fmt.Sprintf("Edit text of %s", c.path)
}

// EditStyleCommand sets inline style properties
type EditStyleCommand struct {
	doc       ports.DocumentHandle
	path      string
	oldStyles map[string]string
	newStyles map[string]string
}

// NewEditStyleCommand snapshots the inline values of every property in
// styles. Properties that were not set inline are removed again on undo.
func NewEditStyleCommand(ctx context.Context, doc ports.DocumentHandle, path string, styles map[string]string) (*EditStyleCommand, error) {
	if len(styles) == 0 {
		return nil, fmt.Errorf("no style properties to change")
	}

	props := make([]string, 0, len(styles))
	newStyles := make(map[string]string, len(styles))
	for prop, value := range styles {
		prop = strings.ToLower(strings.TrimSpace(prop))
		props = append(props, prop)
		newStyles[prop] = value
	}
	sort.Strings(props)

	old, err := doc.InlineStyles(ctx, path, props)
	if err != nil {
		return nil, fmt.Errorf("snapshotting styles: %w", err)
	}

	return &EditStyleCommand{doc: doc, path: path, oldStyles: old, newStyles: newStyles}, nil
}

func (c *EditStyleCommand) Execute(ctx context.Context) error {
	return c.doc.SetStyles(ctx, c.path, c.newStyles)
}

func (c *EditStyleCommand) Undo(ctx context.Context) error {
	return c.doc.SetStyles(ctx, c.path, c.oldStyles)
}

func (c *EditStyleCommand) Description() string {
	props := make([]string, 0, len(c.newStyles))
	for prop := range c.newStyles {
		props = append(props, prop)
	}
	sort.Strings(props)
	return fmt.Sprintf("Change %s of %s", strings.Join(props, ", "), c.path)
}

var positionProps = []string{"position", "left", "top"}

// MoveElementCommand positions an element absolutely at a frame-local point
// relative to its parent box
type MoveElementCommand struct {
	doc       ports.DocumentHandle
	path      string
	to        entities.Point
	oldStyles map[string]string
}

// NewMoveElementCommand snapshots the element's inline position
func NewMoveElementCommand(ctx context.Context, doc ports.DocumentHandle, path string, to entities.Point) (*MoveElementCommand, error) {
	old, err := doc.InlineStyles(ctx, path, positionProps)
	if err != nil {
		return nil, fmt.Errorf("snapshotting position: %w", err)
	}
	return &MoveElementCommand{doc: doc, path: path, to: to, oldStyles: old}, nil
}

func (c *MoveElementCommand) Execute(ctx context.Context) error {
	return c.doc.SetStyles(ctx, c.path, positionStyles(c.to))
}

func (c *MoveElementCommand) Undo(ctx context.Context) error {
	return c.doc.SetStyles(ctx, c.path, c.oldStyles)
}

func (c *MoveElementCommand) Description() string {
	return fmt.Sprintf("Move %s to (%s, %s)", c.path, formatPx(c.to.X), formatPx(c.to.Y))
}

func positionStyles(p entities.Point) map[string]string {
	return map[string]string{
		"position": "absolute",
		"left":     formatPx(p.X),
		"top":      formatPx(p.Y),
	}
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// DeleteElementCommand removes an element; undo reinserts it where it was
type DeleteElementCommand struct {
	doc     ports.DocumentHandle
	path    string
	removed *entities.RemovedElement
}

// NewDeleteElementCommand checks the element exists
func NewDeleteElementCommand(ctx context.Context, doc ports.DocumentHandle, path string) (*DeleteElementCommand, error) {
	if _, err := doc.Describe(ctx, path); err != nil {
		return nil, fmt.Errorf("resolving element to delete: %w", err)
	}
	return &DeleteElementCommand{doc: doc, path: path}, nil
}

func (c *DeleteElementCommand) Execute(ctx context.Context) error {
	removed, err := c.doc.Remove(ctx, c.path)
	if err != nil {
		return err
	}
	c.removed = &removed
	return nil
}

func (c *DeleteElementCommand) Undo(ctx context.Context) error {
	if c.removed == nil {
		return fmt.Errorf("delete of %s was never executed", c.path)
	}
	if err := c.doc.Insert(ctx, *c.removed); err != nil {
		return err
	}
	c.removed = nil
	return nil
}

func (c *DeleteElementCommand) Description() string {
	return fmt.Sprintf("Delete %s", c.path)
}

func parsePx(value string) (float64, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "px"))
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
