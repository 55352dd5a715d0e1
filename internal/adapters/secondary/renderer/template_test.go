package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

func TestTemplateRenderer_SlideDocument(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	doc, err := r.SlideDocument("Q3 <Review>", `<h1 style="left: 80px; top: 60px">Hello</h1>`)
	require.NoError(t, err)

	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, "<title>Q3 &lt;Review&gt;</title>")
	assert.Contains(t, doc, "width: 1280px; height: 720px")
	assert.Contains(t, doc, `<h1 style="left: 80px; top: 60px">Hello</h1>`)
}

func TestTemplateRenderer_RenderPlayer(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	page, err := r.RenderPlayer(context.Background(), &entities.Presentation{
		ID:    "deck-1",
		Title: "Quarterly",
		Slides: []entities.Slide{
			{HTMLContent: "<h1>A</h1>"},
			{HTMLContent: "<h1>B</h1>"},
		},
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<title>Quarterly</title>")
	assert.Regexp(t, `const deck = \s*"deck-1"\s*;`, html)
	assert.Regexp(t, `const total = \s*2\s*;`, html)
	assert.Contains(t, html, "/api/player/navigate")
	assert.Contains(t, html, "contextmenu")
}
