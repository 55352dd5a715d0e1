package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

const sampleSlide = `<!DOCTYPE html>
<html><head><style>h1 { color: red; }</style></head>
<body style="color: #333333">
  <h1 id="title" style="left: 40px; top: 30px; width: 600px; height: 80px">Hello</h1>
  <div class="content" style="left: 40px; top: 150px; width: 500px; height: 300px">
    <p>First</p>
    <p style="top: 40px; height: 40px">Second <b>bold</b></p>
  </div>
  <div class="aside" style="left: 700px; top: 150px; width: 400px; height: 300px"></div>
</body></html>`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(src)
	require.NoError(t, err)
	return doc
}

func TestPathOf_Resolve(t *testing.T) {
	doc := mustParse(t, sampleSlide)

	tests := []struct {
		name string
		path string
		text string
	}{
		{"unique id", "#title", "Hello"},
		{"nested nth-of-type", "body > div:nth-of-type(1) > p:nth-of-type(2)", "Second bold"},
		{"second div", "body > div:nth-of-type(2)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := doc.Resolve(tt.path)
			require.NotNil(t, n)
			assert.Equal(t, tt.text, TextContent(n))
			assert.Equal(t, tt.path, doc.PathOf(n))
		})
	}

	t.Run("unresolvable paths", func(t *testing.T) {
		assert.Nil(t, doc.Resolve("#missing"))
		assert.Nil(t, doc.Resolve("body > div:nth-of-type(9)"))
		assert.Nil(t, doc.Resolve("main > div:nth-of-type(1)"))
		assert.Nil(t, doc.Resolve("body > div"))
		assert.Nil(t, doc.Resolve(""))
	})

	t.Run("duplicate ids fall back to positional path", func(t *testing.T) {
		dup := mustParse(t, `<body><p id="x">a</p><p id="x">b</p></body>`)
		second := dup.Resolve("body > p:nth-of-type(2)")
		require.NotNil(t, second)
		assert.Equal(t, "body > p:nth-of-type(2)", dup.PathOf(second))
	})
}

func TestPathStableAcrossTextEdit(t *testing.T) {
	doc := mustParse(t, sampleSlide)
	path := "body > div:nth-of-type(1) > p:nth-of-type(1)"

	n := doc.Resolve(path)
	require.NotNil(t, n)
	SetText(n, "Changed")

	again := doc.Resolve(path)
	require.NotNil(t, again)
	assert.Equal(t, "Changed", TextContent(again))
}

func TestStyles(t *testing.T) {
	doc := mustParse(t, sampleSlide)
	title := doc.Resolve("#title")
	require.NotNil(t, title)

	t.Run("inline read and write", func(t *testing.T) {
		SetStyle(title, "color", "blue")
		assert.Equal(t, "blue", InlineStyle(title, "color"))
		assert.Equal(t, "40px", InlineStyle(title, "left"))

		SetStyle(title, "color", "")
		assert.Equal(t, "", InlineStyle(title, "color"))
	})

	t.Run("computed inherits and falls back", func(t *testing.T) {
		styles := doc.ComputedStyles(title)
		assert.Equal(t, "#333333", styles["color"])
		assert.Equal(t, "16px", styles["font-size"])
		assert.Equal(t, "600px", styles["width"])
		assert.Equal(t, "80px", styles["height"])
		assert.Equal(t, "static", styles["position"])
	})

	t.Run("removing the last property drops the attribute", func(t *testing.T) {
		aside := doc.Resolve("body > div:nth-of-type(2)")
		for _, prop := range []string{"left", "top", "width", "height"} {
			SetStyle(aside, prop, "")
		}
		assert.False(t, HasAttr(aside, "style"))
	})
}

func TestBoundingRect(t *testing.T) {
	doc := mustParse(t, sampleSlide)

	assert.Equal(t, entities.Rect{Left: 40, Top: 30, Width: 600, Height: 80}, doc.BoundingRect(doc.Resolve("#title")))
	assert.Equal(t,
		entities.Rect{Left: 40, Top: 190, Width: 500, Height: 40},
		doc.BoundingRect(doc.Resolve("body > div:nth-of-type(1) > p:nth-of-type(2)")))
	assert.Equal(t, entities.Rect{Width: 1280, Height: 720}, doc.BoundingRect(doc.Body()))
}

func TestHitTest(t *testing.T) {
	doc := mustParse(t, sampleSlide)

	assert.Equal(t, "#title", doc.PathOf(doc.HitTest(entities.Point{X: 50, Y: 40})))
	assert.Equal(t, "body > div:nth-of-type(2)", doc.PathOf(doc.HitTest(entities.Point{X: 800, Y: 200})))
	assert.Equal(t, "body", doc.PathOf(doc.HitTest(entities.Point{X: 5, Y: 700})))
	assert.Nil(t, doc.HitTest(entities.Point{X: 1300, Y: 10}))
}

func TestRemoveInsertRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleSlide)
	before, err := doc.Render(false)
	require.NoError(t, err)

	first := doc.Resolve("body > div:nth-of-type(1) > p:nth-of-type(1)")
	removed, err := doc.Remove(first)
	require.NoError(t, err)
	assert.Equal(t, "body > div:nth-of-type(1)", removed.ParentPath)
	assert.Equal(t, 1, removed.Index)
	assert.Equal(t, "Second bold", TextContent(doc.Resolve("body > div:nth-of-type(1) > p:nth-of-type(1)")))

	el, err := doc.Insert(removed)
	require.NoError(t, err)
	assert.Equal(t, "First", TextContent(el))
	assert.Equal(t, "body > div:nth-of-type(1) > p:nth-of-type(1)", doc.PathOf(el))

	after, err := doc.Render(false)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRenderClean(t *testing.T) {
	doc := mustParse(t, `<body><div data-slidekit-editor="overlay">x</div><p id="a" data-slidekit-selected="true" contenteditable="true">keep</p></body>`)

	clean, err := doc.Render(true)
	require.NoError(t, err)
	assert.NotContains(t, clean, "data-slidekit")
	assert.NotContains(t, clean, "contenteditable")
	assert.Contains(t, clean, `<p id="a">keep</p>`)

	live, err := doc.Render(false)
	require.NoError(t, err)
	assert.Contains(t, live, SelectedAttr)
}

func TestSiblings(t *testing.T) {
	doc := mustParse(t, sampleSlide)

	siblings := doc.Siblings(doc.Resolve("#title"))
	require.Len(t, siblings, 2)
	assert.Equal(t, "content", siblings[0].ClassName)
	assert.Equal(t, "DIV", siblings[1].TagName)
}

func TestDocument_Layout(t *testing.T) {
	doc, err := Parse(`<body style="background-color: white">
<div style="left: 100px; top: 50px; width: 400px; height: 200px; background-color: #eee">
<h2 style="left: 10px; top: 10px; width: 300px; height: 40px; color: red">Title <em>here</em></h2>
</div>
<script>ignored()</script>
</body>`)
	require.NoError(t, err)

	boxes := doc.Layout()
	require.Len(t, boxes, 3)

	assert.Equal(t, "div", boxes[0].Tag)
	assert.Equal(t, entities.Rect{Left: 100, Top: 50, Width: 400, Height: 200}, boxes[0].Rect)
	assert.Equal(t, "#eee", boxes[0].Styles["background-color"])

	assert.Equal(t, "h2", boxes[1].Tag)
	assert.Equal(t, entities.Rect{Left: 110, Top: 60, Width: 300, Height: 40}, boxes[1].Rect)
	assert.Equal(t, "Title", boxes[1].Text)
	assert.Equal(t, "red", boxes[1].Styles["color"])

	assert.Equal(t, "em", boxes[2].Tag)
	assert.Equal(t, "here", boxes[2].Text)
}
