package entities

import (
	"encoding/json"
	"fmt"
)

// MessageType names a host <-> frame message
type MessageType string

const (
	MessageToggleEditMode  MessageType = "TOGGLE_EDIT_MODE"
	MessageSelectElement   MessageType = "SELECT_ELEMENT"
	MessageElementSelected MessageType = "ELEMENT_SELECTED"
	MessageClearSelection  MessageType = "CLEAR_SELECTION"
)

// Message is what crosses the document boundary. Data is always a JSON copy,
// so neither side can retain a reference into the other's state.
type Message struct {
	Type   MessageType     `json:"type"`
	Origin string          `json:"-"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ToggleEditModeData is the payload of TOGGLE_EDIT_MODE
type ToggleEditModeData struct {
	Enabled bool `json:"enabled"`
}

// SelectElementData is the payload of SELECT_ELEMENT
type SelectElementData struct {
	ElementPath string `json:"elementPath"`
}

// ElementSelectedData is the payload of ELEMENT_SELECTED
type ElementSelectedData struct {
	Element        ElementRef        `json:"element"`
	TextContent    string            `json:"textContent"`
	ElementPath    string            `json:"elementPath"`
	BoundingRect   Rect              `json:"boundingRect"`
	ComputedStyles map[string]string `json:"computedStyles"`
}

// ElementData converts the payload into the host-side descriptor
func (d ElementSelectedData) ElementData() ElementData {
	return ElementData{
		ID:             d.Element.ID,
		TagName:        d.Element.TagName,
		ClassName:      d.Element.ClassName,
		TextContent:    d.TextContent,
		ElementPath:    d.ElementPath,
		BoundingRect:   d.BoundingRect,
		ComputedStyles: d.ComputedStyles,
	}
}

// NewElementSelectedData builds the payload from a descriptor
func NewElementSelectedData(e ElementData) ElementSelectedData {
	return ElementSelectedData{
		Element:        ElementRef{TagName: e.TagName, ID: e.ID, ClassName: e.ClassName},
		TextContent:    e.TextContent,
		ElementPath:    e.ElementPath,
		BoundingRect:   e.BoundingRect,
		ComputedStyles: e.ComputedStyles,
	}
}

// NewMessage encodes payload into a message of the given type
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	msg.Data = data
	return msg, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Type, err)
	}
	return nil
}
