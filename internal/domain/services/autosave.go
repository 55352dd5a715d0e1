package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

var (
	// ErrSaveInFlight is returned when a save is requested while another is running
	ErrSaveInFlight = errors.New("a save is already in progress")

	// ErrNoConflict is returned by ResolveConflict when the last save did not conflict
	ErrNoConflict = errors.New("no unresolved save conflict")
)

// ContentSource yields the slide markup to persist
type ContentSource interface {
	Serialize(ctx context.Context, clean bool) (string, error)
}

// SlideRef identifies the slide an auto-save controller persists
type SlideRef struct {
	SlideID        string
	PresentationID string
	Index          int
	Version        int
}

// AutoSaveOptions tunes an AutoSaveController
type AutoSaveOptions struct {
	Debounce    time.Duration
	StatusReset time.Duration
	EditedBy    string
}

// AutoSaveController persists one slide: debounced after edits, on unload
// and on demand. At most one save is in flight at any time.
type AutoSaveController struct {
	client    ports.SaveClient
	source    ContentSource
	clock     ports.TimeProvider
	debouncer *Debouncer
	opts      AutoSaveOptions

	saving atomic.Bool

	mu         sync.Mutex
	slide      SlideRef
	dirty      bool
	generation uint64
	status     entities.SaveStatus
	lastErr    error
	conflict   *entities.SaveError
	resetTimer ports.Timer
	listeners  []func(entities.SaveStatus)

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewAutoSaveController creates a controller in the idle state
func NewAutoSaveController(client ports.SaveClient, source ContentSource, clock ports.TimeProvider, slide SlideRef, opts AutoSaveOptions, logger *slog.Logger) *AutoSaveController {
	if opts.Debounce <= 0 {
		opts.Debounce = 30 * time.Second
	}
	if opts.StatusReset <= 0 {
		opts.StatusReset = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AutoSaveController{
		client:    client,
		source:    source,
		clock:     clock,
		debouncer: NewDebouncer(clock, opts.Debounce),
		opts:      opts,
		slide:     slide,
		status:    entities.SaveStatusIdle,
		ctx:       ctx,
		cancel:    cancel,
		logger: logger.With("service", "autosave",
			"presentation", slide.PresentationID,
			"slide_index", slide.Index),
	}
}

// OnStatus registers a listener for status transitions
func (a *AutoSaveController) OnStatus(fn func(entities.SaveStatus)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// MarkDirty records an edit and restarts the debounce window
func (a *AutoSaveController) MarkDirty() {
	a.mu.Lock()
	a.dirty = true
	a.generation++
	a.mu.Unlock()

	a.debouncer.Schedule(func() {
		if err := a.save(a.ctx, "debounce"); err != nil && !errors.Is(err, ErrSaveInFlight) {
			a.logger.Debug("debounced save did not complete", "error", err)
		}
	})
}

// Save persists the slide now if it has unsaved changes
func (a *AutoSaveController) Save(ctx context.Context) error {
	return a.save(ctx, "manual")
}

// BeforeUnload makes one synchronous best-effort save when there are
// unsaved changes and no save is already running
func (a *AutoSaveController) BeforeUnload(ctx context.Context) error {
	if !a.HasUnsavedChanges() {
		return nil
	}
	if a.saving.Load() {
		return ErrSaveInFlight
	}
	return a.save(ctx, "beforeunload")
}

func (a *AutoSaveController) save(ctx context.Context, trigger string) error {
	if !a.saving.CompareAndSwap(false, true) {
		a.logger.Debug("save dropped, another save is in flight", "trigger", trigger)
		return ErrSaveInFlight
	}
	defer a.saving.Store(false)

	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	generation := a.generation
	slide := a.slide
	a.mu.Unlock()

	a.debouncer.Cancel()
	a.setStatus(entities.SaveStatusSaving)

	content, err := a.source.Serialize(ctx, true)
	if err != nil {
		a.fail(fmt.Errorf("serializing slide: %w", err))
		return err
	}

	req := entities.SaveRequest{
		SlideID:        slide.SlideID,
		PresentationID: slide.PresentationID,
		HTMLContent:    content,
		SlideIndex:     slide.Index,
		Metadata: entities.SaveMetadata{
			LastEdited: a.clock.Now(),
			EditedBy:   a.opts.EditedBy,
			Version:    slide.Version,
		},
	}

	start := a.clock.Now()
	result, err := a.client.Save(ctx, req)
	if err != nil {
		var saveErr *entities.SaveError
		if errors.As(err, &saveErr) && saveErr.Conflict {
			a.mu.Lock()
			a.conflict = saveErr
			a.mu.Unlock()
			a.logger.Warn("save conflict, keeping local changes",
				"trigger", trigger,
				"base_version", slide.Version,
				"server_version", saveErr.CurrentVersion)
		} else {
			a.logger.Error("save failed", "trigger", trigger, "error", err)
		}
		a.fail(err)
		return err
	}

	a.mu.Lock()
	a.slide.Version = result.Version
	if result.SlideID != "" {
		a.slide.SlideID = result.SlideID
	}
	a.conflict = nil
	a.lastErr = nil
	// edits made while the request was in flight stay unsaved
	stillDirty := a.generation != generation
	a.dirty = stillDirty
	a.mu.Unlock()

	a.logger.Info("slide saved",
		"trigger", trigger,
		"version", result.Version,
		"duration", a.clock.Since(start))
	a.setStatus(entities.SaveStatusSaved)

	if stillDirty {
		a.debouncer.Schedule(func() {
			_ = a.save(a.ctx, "debounce")
		})
	}
	return nil
}

func (a *AutoSaveController) fail(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	a.setStatus(entities.SaveStatusError)
}

// setStatus moves the state machine; saved and error decay to idle
func (a *AutoSaveController) setStatus(status entities.SaveStatus) {
	a.mu.Lock()
	a.status = status
	if a.resetTimer != nil {
		a.resetTimer.Stop()
		a.resetTimer = nil
	}
	if status == entities.SaveStatusSaved || status == entities.SaveStatusError {
		a.resetTimer = a.clock.AfterFunc(a.opts.StatusReset, func() {
			a.mu.Lock()
			if a.status != status {
				a.mu.Unlock()
				return
			}
			a.status = entities.SaveStatusIdle
			a.resetTimer = nil
			listeners := slices.Clone(a.listeners)
			a.mu.Unlock()

			for _, fn := range listeners {
				fn(entities.SaveStatusIdle)
			}
		})
	}
	listeners := slices.Clone(a.listeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

// ResolveConflict applies an explicit user decision after a conflict.
// ConflictReload discards local changes and returns the server copy, which
// the caller remounts. ConflictOverwrite saves the local copy on top of the
// server's current version.
func (a *AutoSaveController) ResolveConflict(ctx context.Context, strategy entities.ConflictStrategy) (*entities.Slide, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}

	a.mu.Lock()
	conflict := a.conflict
	slide := a.slide
	a.mu.Unlock()
	if conflict == nil {
		return nil, ErrNoConflict
	}

	switch strategy {
	case entities.ConflictReload:
		server, err := a.client.Fetch(ctx, slide.PresentationID, slide.Index)
		if err != nil {
			return nil, fmt.Errorf("fetching server copy: %w", err)
		}
		a.debouncer.Cancel()
		a.mu.Lock()
		a.slide.Version = server.Metadata.Version
		a.dirty = false
		a.generation++
		a.conflict = nil
		a.lastErr = nil
		a.mu.Unlock()
		a.setStatus(entities.SaveStatusIdle)
		a.logger.Info("conflict resolved by reloading", "version", server.Metadata.Version)
		return server, nil

	default:
		a.mu.Lock()
		a.slide.Version = conflict.CurrentVersion
		a.mu.Unlock()
		a.logger.Info("conflict resolved by overwriting", "server_version", conflict.CurrentVersion)
		if err := a.save(ctx, "overwrite"); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// Status returns the visible save status
func (a *AutoSaveController) Status() entities.SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// HasUnsavedChanges reports whether edits are waiting for a confirmed save
func (a *AutoSaveController) HasUnsavedChanges() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Version returns the server version the next save is based on
func (a *AutoSaveController) Version() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slide.Version
}

// LastError returns the error of the most recent failed save
func (a *AutoSaveController) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Conflict returns the unresolved conflict, if any
func (a *AutoSaveController) Conflict() *entities.SaveError {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conflict
}

// Saving reports whether a save is in flight
func (a *AutoSaveController) Saving() bool {
	return a.saving.Load()
}

// Close cancels pending timers and any debounced save in progress
func (a *AutoSaveController) Close() {
	a.debouncer.Cancel()
	a.cancel()

	a.mu.Lock()
	if a.resetTimer != nil {
		a.resetTimer.Stop()
		a.resetTimer = nil
	}
	a.mu.Unlock()
}
