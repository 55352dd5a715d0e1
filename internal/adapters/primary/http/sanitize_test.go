package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeStyleValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"12px", true},
		{"'Open Sans', \"Helvetica Neue\", sans-serif", true},
		{"hsl(210, 40%, 50%)", true},
		{"rgba(0, 0, 0, 0.5)", true},
		{"var(--accent, #ff0000)", true},
		{"calc(100% - 2rem)", true},
		{"rotate(5deg) translate(10px, 4px)", true},
		{"url(https://cdn.example.com/bg.png)", true},
		{"url('images/bg.png') no-repeat", true},
		{"url(data:image/png)", true},
		{"url(javascript:alert(1))", false},
		{"url(data:text/html,hi)", false},
		{"expression(alert(1))", false},
		{"red; } body { color: blue", false},
		{"\\75rl(evil)", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, safeStyleValue(tt.value))
		})
	}
}

func TestShapeDiff(t *testing.T) {
	before := []string{"<h1 [] {color}>", "<svg [viewbox] {}>"}

	assert.Empty(t, shapeDiff(before, before))
	assert.Equal(t, "<svg [viewbox] {}> would be removed", shapeDiff(before, before[:1]))
	assert.Equal(t, "<h1 [] {color}> would become <h1 [] {}>", shapeDiff(before, []string{"<h1 [] {}>", "<svg [viewbox] {}>"}))
	assert.Equal(t, "unexpected <p [] {}>", shapeDiff(before, append(before, "<p [] {}>")))
}
