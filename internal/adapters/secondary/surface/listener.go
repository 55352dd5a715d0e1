package surface

import (
	"context"

	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/dom"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Frame-side half of the selection protocol. Everything here runs on the
// frame's loop goroutine.

func (f *Frame) handleMessage(msg entities.Message) {
	switch msg.Type {
	case entities.MessageToggleEditMode:
		var data entities.ToggleEditModeData
		if err := msg.Decode(&data); err != nil {
			f.logger.Warn("malformed edit mode toggle", "error", err)
			return
		}
		f.setEditMode(data.Enabled)

	case entities.MessageSelectElement:
		var data entities.SelectElementData
		if err := msg.Decode(&data); err != nil {
			f.logger.Warn("malformed select request", "error", err)
			return
		}
		n := f.doc.Resolve(data.ElementPath)
		if n == nil {
			f.logger.Debug("select path did not resolve, clearing selection", "path", data.ElementPath)
			f.clearSelection()
			f.post(entities.MessageClearSelection, nil)
			return
		}
		f.selectNode(n)

	case entities.MessageClearSelection:
		f.clearSelection()

	default:
		f.logger.Debug("ignoring message", "type", msg.Type)
	}
}

func (f *Frame) setEditMode(enabled bool) {
	f.editMode = enabled
	if enabled {
		dom.SetAttr(f.doc.Body(), dom.EditingAttr, "true")
		return
	}
	dom.RemoveAttr(f.doc.Body(), dom.EditingAttr)
	f.clearSelection()
}

func (f *Frame) selectNode(n *html.Node) {
	f.clearSelection()
	f.selected = n
	dom.SetAttr(n, dom.SelectedAttr, "true")
	f.post(entities.MessageElementSelected, entities.NewElementSelectedData(f.doc.Describe(n)))
}

func (f *Frame) clearSelection() {
	f.selected = nil
	f.doc.ClearMarks(dom.SelectedAttr)
}

func (f *Frame) post(t entities.MessageType, payload interface{}) {
	msg, err := entities.NewMessage(t, payload)
	if err != nil {
		f.logger.Error("encoding frame message", "type", t, "error", err)
		return
	}
	if err := f.port.Post(msg); err != nil {
		f.logger.Debug("posting to host failed", "type", t, "error", err)
	}
}

// Click simulates a user click at a frame-local point. Outside edit mode the
// click belongs to the slide and nothing is posted.
func (f *Frame) Click(ctx context.Context, p entities.Point) error {
	return f.do(ctx, func(doc *dom.Document) error {
		if !f.editMode {
			return nil
		}
		if n := doc.HitTest(p); n != nil {
			f.selectNode(n)
		}
		return nil
	})
}

// ClickElement simulates a click landing on the element at path
func (f *Frame) ClickElement(ctx context.Context, path string) error {
	return f.do(ctx, func(doc *dom.Document) error {
		if !f.editMode {
			return nil
		}
		n, err := f.resolve(doc, path)
		if err != nil {
			return err
		}
		f.selectNode(n)
		return nil
	})
}

// EditMode reports whether the frame listener is in edit mode
func (f *Frame) EditMode(ctx context.Context) (bool, error) {
	var on bool
	err := f.do(ctx, func(*dom.Document) error {
		on = f.editMode
		return nil
	})
	return on, err
}
