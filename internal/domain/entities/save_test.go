package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveError_Is(t *testing.T) {
	conflict := &SaveError{StatusCode: 409, Conflict: true, Message: "stale", CurrentVersion: 4}
	wrapped := fmt.Errorf("saving slide: %w", conflict)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Contains(t, conflict.Error(), "server version 4")

	generic := &SaveError{StatusCode: 500, Message: "boom"}
	assert.False(t, errors.Is(generic, ErrConflict))
	assert.Equal(t, "save failed with status 500: boom", generic.Error())

	var se *SaveError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, 4, se.CurrentVersion)
}

func TestSaveRequest_Validate(t *testing.T) {
	req := SaveRequest{PresentationID: "p1", HTMLContent: "<p>x</p>", SlideIndex: 0}
	assert.NoError(t, req.Validate())

	req.PresentationID = ""
	assert.Error(t, req.Validate())

	req.PresentationID = "p1"
	req.SlideIndex = -1
	assert.Error(t, req.Validate())
}
