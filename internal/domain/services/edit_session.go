package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

var (
	// ErrNotEditing is returned for edit operations outside edit mode
	ErrNotEditing = errors.New("edit mode is not active")

	// ErrNoSelection is returned for operations that need a selected element
	ErrNoSelection = errors.New("no element selected")
)

// DirtyTracker is told about every successful mutation and reports the
// persistence side of the editing state
type DirtyTracker interface {
	MarkDirty()
	HasUnsavedChanges() bool
	Status() entities.SaveStatus
}

type dragState struct {
	path     string
	original map[string]string
	origin   entities.Point
}

// EditSession drives editing of one mounted slide. It talks to the frame
// only through the message port and the document handle.
type EditSession struct {
	port      ports.MessagePort
	doc       ports.DocumentHandle
	stack     *CommandStack
	alignment *AlignmentEngine
	tracker   DirtyTracker
	grid      *GridOverlay

	mu       sync.Mutex
	state    entities.EditingSlideState
	drag     *dragState
	onChange []func(entities.EditingSlideState)

	logger *slog.Logger
}

// EditSessionDeps wires an EditSession. Alignment, Tracker and Grid are optional.
type EditSessionDeps struct {
	Port      ports.MessagePort
	Document  ports.DocumentHandle
	Stack     *CommandStack
	Alignment *AlignmentEngine
	Tracker   DirtyTracker
	Grid      *GridOverlay
	Logger    *slog.Logger
}

// NewEditSession creates a session in the not-editing state
func NewEditSession(deps EditSessionDeps) *EditSession {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stack := deps.Stack
	if stack == nil {
		stack = NewCommandStack(DefaultMaxHistory, logger)
	}
	return &EditSession{
		port:      deps.Port,
		doc:       deps.Document,
		stack:     stack,
		alignment: deps.Alignment,
		tracker:   deps.Tracker,
		grid:      deps.Grid,
		logger:    logger.With("service", "edit_session"),
	}
}

// Run handles frame messages until ctx is done or the frame goes away
func (s *EditSession) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.port.C():
			if !ok {
				s.logger.Debug("frame channel closed")
				return nil
			}
			s.handleMessage(msg)
		}
	}
}

func (s *EditSession) handleMessage(msg entities.Message) {
	switch msg.Type {
	case entities.MessageElementSelected:
		var data entities.ElementSelectedData
		if err := msg.Decode(&data); err != nil {
			s.logger.Warn("malformed selection message", "error", err)
			return
		}
		el := data.ElementData()

		s.mu.Lock()
		if !s.state.IsEditing {
			s.mu.Unlock()
			s.logger.Debug("ignoring selection outside edit mode", "path", el.ElementPath)
			return
		}
		s.state.SelectedElement = &el
		s.state.EditingMode = entities.EditingModeNone
		s.mu.Unlock()
		s.notify()

	case entities.MessageClearSelection:
		s.mu.Lock()
		s.state.SelectedElement = nil
		s.state.EditingMode = entities.EditingModeNone
		s.mu.Unlock()
		s.notify()

	default:
		s.logger.Debug("ignoring frame message", "type", msg.Type)
	}
}

// OnChange registers a listener for state changes
func (s *EditSession) OnChange(fn func(entities.EditingSlideState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// State returns a copy of the editing state
func (s *EditSession) State() entities.EditingSlideState {
	s.mu.Lock()
	state := s.state.Copy()
	s.mu.Unlock()

	if s.tracker != nil {
		state.HasUnsavedChanges = s.tracker.HasUnsavedChanges()
		if state.IsEditing {
			state.SaveStatus = s.tracker.Status()
		}
	}
	return state
}

// Stack exposes the undo history
func (s *EditSession) Stack() *CommandStack {
	return s.stack
}

// StartEditMode enters edit mode and switches the frame listener on
func (s *EditSession) StartEditMode(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IsEditing {
		s.mu.Unlock()
		return nil
	}
	s.state = entities.NewEditingSlideState()
	s.mu.Unlock()

	if err := s.post(entities.MessageToggleEditMode, entities.ToggleEditModeData{Enabled: true}); err != nil {
		s.mu.Lock()
		s.state = entities.EditingSlideState{}
		s.mu.Unlock()
		return err
	}

	s.logger.Info("edit mode started")
	s.notify()
	return nil
}

// StopEditMode leaves edit mode from any editing state
func (s *EditSession) StopEditMode(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.IsEditing {
		s.mu.Unlock()
		return nil
	}
	s.state = entities.EditingSlideState{}
	s.drag = nil
	s.mu.Unlock()

	if s.alignment != nil {
		s.alignment.StopDrag()
	}
	s.stack.Clear()

	err := s.post(entities.MessageToggleEditMode, entities.ToggleEditModeData{Enabled: false})
	if err != nil {
		s.logger.Debug("frame did not receive edit mode toggle", "error", err)
	}

	s.logger.Info("edit mode stopped")
	s.notify()
	return nil
}

// SelectElement asks the frame to select the element at path. The selection
// arrives asynchronously as ELEMENT_SELECTED, or CLEAR_SELECTION when the
// path no longer resolves.
func (s *EditSession) SelectElement(ctx context.Context, path string) error {
	if !s.isEditing() {
		return ErrNotEditing
	}
	return s.post(entities.MessageSelectElement, entities.SelectElementData{ElementPath: path})
}

// ClearSelection drops the selection on both sides
func (s *EditSession) ClearSelection(ctx context.Context) error {
	s.mu.Lock()
	s.state.SelectedElement = nil
	s.state.EditingMode = entities.EditingModeNone
	s.mu.Unlock()
	s.notify()

	if err := s.post(entities.MessageClearSelection, nil); err != nil {
		s.logger.Debug("frame did not receive clear selection", "error", err)
	}
	return nil
}

// SetMode chooses how the selected element is being edited
func (s *EditSession) SetMode(mode entities.EditingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown editing mode %q", mode)
	}

	s.mu.Lock()
	if !s.state.IsEditing {
		s.mu.Unlock()
		return ErrNotEditing
	}
	if s.state.SelectedElement == nil {
		s.mu.Unlock()
		return ErrNoSelection
	}
	s.state.EditingMode = mode
	s.mu.Unlock()

	s.notify()
	return nil
}

// ApplyText replaces the selected element's text
func (s *EditSession) ApplyText(ctx context.Context, text string) error {
	path, err := s.selectedPath()
	if err != nil {
		return err
	}
	cmd, err := NewEditTextCommand(ctx, s.doc, path, text)
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd, path)
}

// ApplyStyles sets inline styles on the selected element
func (s *EditSession) ApplyStyles(ctx context.Context, styles map[string]string) error {
	path, err := s.selectedPath()
	if err != nil {
		return err
	}
	cmd, err := NewEditStyleCommand(ctx, s.doc, path, styles)
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd, path)
}

// MoveSelected positions the selected element at to, snapped to the grid
// when one is configured
func (s *EditSession) MoveSelected(ctx context.Context, to entities.Point) error {
	path, err := s.selectedPath()
	if err != nil {
		return err
	}
	cmd, err := NewMoveElementCommand(ctx, s.doc, path, s.snap(to))
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd, path)
}

// DeleteSelected removes the selected element and clears the selection
func (s *EditSession) DeleteSelected(ctx context.Context) error {
	path, err := s.selectedPath()
	if err != nil {
		return err
	}
	cmd, err := NewDeleteElementCommand(ctx, s.doc, path)
	if err != nil {
		return err
	}
	if err := s.stack.Execute(ctx, cmd); err != nil {
		return err
	}
	s.markDirty()
	return s.ClearSelection(ctx)
}

// Undo reverts the last command
func (s *EditSession) Undo(ctx context.Context) error {
	if !s.isEditing() {
		return ErrNotEditing
	}
	applied, err := s.stack.Undo(ctx)
	if err != nil || !applied {
		return err
	}
	s.markDirty()
	s.refreshSelection(ctx)
	return nil
}

// Redo re-applies the last undone command
func (s *EditSession) Redo(ctx context.Context) error {
	if !s.isEditing() {
		return ErrNotEditing
	}
	applied, err := s.stack.Redo(ctx)
	if err != nil || !applied {
		return err
	}
	s.markDirty()
	s.refreshSelection(ctx)
	return nil
}

// BeginDrag starts dragging the selected element: position mode is entered
// and the alignment loop starts
func (s *EditSession) BeginDrag(ctx context.Context) error {
	path, err := s.selectedPath()
	if err != nil {
		return err
	}

	original, err := s.doc.InlineStyles(ctx, path, positionProps)
	if err != nil {
		return fmt.Errorf("reading position: %w", err)
	}
	el, err := s.doc.Describe(ctx, path)
	if err != nil {
		return fmt.Errorf("reading geometry: %w", err)
	}
	parent := entities.Point{X: el.BoundingRect.Left, Y: el.BoundingRect.Top}
	if left, ok := parsePx(original["left"]); ok {
		parent.X -= left
	}
	if top, ok := parsePx(original["top"]); ok {
		parent.Y -= top
	}

	s.mu.Lock()
	s.drag = &dragState{path: path, original: original, origin: parent}
	s.state.EditingMode = entities.EditingModePosition
	s.mu.Unlock()
	s.notify()

	if s.alignment != nil {
		s.alignment.StartDrag(ctx, func(ctx context.Context) (entities.ElementData, []entities.ElementData, error) {
			dragged, err := s.doc.Describe(ctx, path)
			if err != nil {
				return entities.ElementData{}, nil, err
			}
			siblings, err := s.doc.Siblings(ctx, path)
			return dragged, siblings, err
		})
	}
	return nil
}

// DragTo moves the dragged element live, without recording history.
// to is the element's new top-left in frame coordinates.
func (s *EditSession) DragTo(ctx context.Context, to entities.Point) error {
	s.mu.Lock()
	drag := s.drag
	s.mu.Unlock()
	if drag == nil {
		return errors.New("no drag in progress")
	}

	local := entities.Point{X: to.X - drag.origin.X, Y: to.Y - drag.origin.Y}
	return s.doc.SetStyles(ctx, drag.path, positionStyles(local))
}

// EndDrag drops the element at to: the live position is reverted and the
// move is executed as a single undoable command
func (s *EditSession) EndDrag(ctx context.Context, to entities.Point) error {
	s.mu.Lock()
	drag := s.drag
	s.drag = nil
	s.mu.Unlock()
	if drag == nil {
		return errors.New("no drag in progress")
	}

	if s.alignment != nil {
		s.alignment.StopDrag()
	}

	if err := s.doc.SetStyles(ctx, drag.path, drag.original); err != nil {
		return fmt.Errorf("reverting live drag: %w", err)
	}

	local := s.snap(entities.Point{X: to.X - drag.origin.X, Y: to.Y - drag.origin.Y})
	cmd, err := NewMoveElementCommand(ctx, s.doc, drag.path, local)
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd, drag.path)
}

func (s *EditSession) execute(ctx context.Context, cmd Command, path string) error {
	if err := s.stack.Execute(ctx, cmd); err != nil {
		return err
	}
	s.markDirty()

	el, err := s.doc.Describe(ctx, path)
	if err != nil {
		s.logger.Debug("refreshing selection failed", "path", path, "error", err)
		return nil
	}
	s.mu.Lock()
	if s.state.SelectedElement != nil && s.state.SelectedElement.ElementPath == path {
		s.state.SelectedElement = &el
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// refreshSelection re-reads the selected element after history moved. A
// selection that no longer resolves is cleared.
func (s *EditSession) refreshSelection(ctx context.Context) {
	s.mu.Lock()
	selected := s.state.SelectedElement
	s.mu.Unlock()
	if selected == nil {
		s.notify()
		return
	}

	el, err := s.doc.Describe(ctx, selected.ElementPath)
	s.mu.Lock()
	if err != nil {
		s.state.SelectedElement = nil
		s.state.EditingMode = entities.EditingModeNone
	} else {
		s.state.SelectedElement = &el
	}
	s.mu.Unlock()
	s.notify()
}

func (s *EditSession) markDirty() {
	if s.tracker != nil {
		s.tracker.MarkDirty()
	}
	s.mu.Lock()
	s.state.HasUnsavedChanges = true
	s.mu.Unlock()
}

func (s *EditSession) snap(p entities.Point) entities.Point {
	if s.grid == nil {
		return p
	}
	return entities.Point{X: s.grid.Snap(p.X), Y: s.grid.Snap(p.Y)}
}

func (s *EditSession) selectedPath() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsEditing {
		return "", ErrNotEditing
	}
	if s.state.SelectedElement == nil {
		return "", ErrNoSelection
	}
	return s.state.SelectedElement.ElementPath, nil
}

func (s *EditSession) isEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsEditing
}

func (s *EditSession) post(t entities.MessageType, payload interface{}) error {
	msg, err := entities.NewMessage(t, payload)
	if err != nil {
		return err
	}
	if err := s.port.Post(msg); err != nil {
		return fmt.Errorf("posting %s: %w", t, err)
	}
	return nil
}

func (s *EditSession) notify() {
	state := s.State()

	s.mu.Lock()
	listeners := slices.Clone(s.onChange)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
