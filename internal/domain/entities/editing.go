package entities

// EditingMode is the kind of edit the user is performing on the selection
type EditingMode string

const (
	EditingModeNone     EditingMode = ""
	EditingModeText     EditingMode = "text"
	EditingModeStyle    EditingMode = "style"
	EditingModePosition EditingMode = "position"
)

// Valid reports whether m is one of the known modes (including none)
func (m EditingMode) Valid() bool {
	switch m {
	case EditingModeNone, EditingModeText, EditingModeStyle, EditingModePosition:
		return true
	default:
		return false
	}
}

// SaveStatus is the auto-save state machine's visible state
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// EditingSlideState is the per-slide UI state of an edit session
type EditingSlideState struct {
	IsEditing         bool         `json:"isEditing"`
	HasUnsavedChanges bool         `json:"hasUnsavedChanges"`
	SelectedElement   *ElementData `json:"selectedElement"`
	EditingMode       EditingMode  `json:"editingMode"`
	SaveStatus        SaveStatus   `json:"saveStatus"`
}

// NewEditingSlideState returns the state created on startEditing
func NewEditingSlideState() EditingSlideState {
	return EditingSlideState{
		IsEditing:  true,
		SaveStatus: SaveStatusIdle,
	}
}

// Copy returns a value copy with its own selected element
func (s EditingSlideState) Copy() EditingSlideState {
	if s.SelectedElement != nil {
		el := s.SelectedElement.Clone()
		s.SelectedElement = &el
	}
	return s
}

// GuideType is the orientation of an alignment guide
type GuideType string

const (
	GuideHorizontal GuideType = "horizontal"
	GuideVertical   GuideType = "vertical"
)

// AlignmentGuide is a transient guide line shown while dragging
type AlignmentGuide struct {
	Type       GuideType `json:"type"`
	Position   float64   `json:"position"`
	ElementIDs []string  `json:"elementIds"`
}

// HasElement reports whether id is one of the aligned elements
func (g AlignmentGuide) HasElement(id string) bool {
	for _, e := range g.ElementIDs {
		if e == id {
			return true
		}
	}
	return false
}
