package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInnerHTML_SetInnerHTML(t *testing.T) {
	doc := mustParse(t, `<html><head><title>t</title></head><body style="color: red"><p>old</p></body></html>`)

	inner, err := InnerHTML(doc.Body())
	require.NoError(t, err)
	assert.Equal(t, "<p>old</p>", inner)

	require.NoError(t, SetInnerHTML(doc.Body(), `<h1 id="x">new</h1><p>two</p>`))

	out, err := doc.Render(true)
	require.NoError(t, err)
	assert.Contains(t, out, `<body style="color: red"><h1 id="x">new</h1><p>two</p></body>`)
	assert.NotNil(t, doc.Resolve("#x"))
}

func TestRemoveElements(t *testing.T) {
	doc := mustParse(t, `<html><head><script>a()</script><style>p{}</style></head><body><div><script>b()</script><p>keep</p></div></body></html>`)

	assert.Equal(t, 2, doc.RemoveElements("script"))

	out, err := doc.Render(true)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<style>p{}</style>")
	assert.Contains(t, out, "<p>keep</p>")
}
