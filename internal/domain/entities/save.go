package entities

import (
	"errors"
	"fmt"
	"time"
)

// ErrConflict is matched by errors.Is when the server rejected a save because
// the slide moved on since the version the editor loaded
var ErrConflict = errors.New("slide was modified by someone else")

// SaveMetadata is the provenance sent with a save request.
// Version is the base version the edit was made against.
type SaveMetadata struct {
	LastEdited time.Time `json:"lastEdited"`
	EditedBy   string    `json:"editedBy"`
	Version    int       `json:"version"`
}

// SaveRequest is the body of PUT /slides/save
type SaveRequest struct {
	SlideID        string       `json:"slideId,omitempty"`
	PresentationID string       `json:"presentationId"`
	HTMLContent    string       `json:"htmlContent"`
	SlideIndex     int          `json:"slideIndex"`
	Metadata       SaveMetadata `json:"metadata"`
}

// Validate checks the request before it is sent or stored
func (r *SaveRequest) Validate() error {
	if r.PresentationID == "" {
		return errors.New("presentation id is required")
	}
	if r.SlideIndex < 0 {
		return errors.New("slide index must be non-negative")
	}
	if r.HTMLContent == "" {
		return errors.New("html content cannot be empty")
	}
	if r.Metadata.Version < 0 {
		return errors.New("base version must be non-negative")
	}
	return nil
}

// SaveResult is the success body of PUT /slides/save
type SaveResult struct {
	SlideID string    `json:"slideId"`
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
}

// SaveFailure is the error body of PUT /slides/save
type SaveFailure struct {
	Success        bool   `json:"success"`
	Conflict       bool   `json:"conflict,omitempty"`
	Error          string `json:"error"`
	CurrentVersion int    `json:"currentVersion,omitempty"`
}

// SaveError describes a failed save. Conflict errors match ErrConflict.
type SaveError struct {
	StatusCode     int
	Conflict       bool
	Message        string
	CurrentVersion int
	Cause          error
}

func (e *SaveError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("save conflict: %s (server version %d)", e.Message, e.CurrentVersion)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("save failed with status %d: %s", e.StatusCode, e.Message)
	}
	return "save failed: " + e.Message
}

func (e *SaveError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrConflict) match conflict errors
func (e *SaveError) Is(target error) bool {
	return target == ErrConflict && e.Conflict
}

// ConflictStrategy is an explicit, user-chosen way out of a save conflict
type ConflictStrategy string

const (
	// ConflictReload discards local edits and loads the server copy
	ConflictReload ConflictStrategy = "reload"
	// ConflictOverwrite saves local edits on top of the server's current version
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// Valid reports whether s is a known strategy
func (s ConflictStrategy) Valid() bool {
	return s == ConflictReload || s == ConflictOverwrite
}
