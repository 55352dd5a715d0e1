// Package dom models the slide document rendered inside the editing frame.
//
// A Document is owned by exactly one goroutine (the frame's event loop) and
// is never shared. Everything that leaves the package is a value copy.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Editor-only markup. Attributes with this prefix are added by the editor
// and stripped from serialized output; elements carrying EditorAttr are
// removed entirely.
const (
	EditorAttrPrefix = "data-slidekit-"
	EditorAttr       = "data-slidekit-editor"
	SelectedAttr     = "data-slidekit-selected"
	EditingAttr      = "data-slidekit-editing"
)

// Document is a parsed slide document
type Document struct {
	root *html.Node
	body *html.Node
}

// Parse builds a document from slide HTML. Fragments are wrapped in a body.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing slide document: %w", err)
	}

	body := findElement(root, "body")
	if body == nil {
		return nil, errors.New("slide document has no body")
	}

	return &Document{root: root, body: body}, nil
}

// Body returns the body element
func (d *Document) Body() *html.Node {
	return d.body
}

// Describe builds the serializable descriptor of n
func (d *Document) Describe(n *html.Node) entities.ElementData {
	return entities.ElementData{
		ID:             Attr(n, "id"),
		TagName:        strings.ToUpper(n.Data),
		ClassName:      Attr(n, "class"),
		TextContent:    TextContent(n),
		ElementPath:    d.PathOf(n),
		BoundingRect:   d.BoundingRect(n),
		ComputedStyles: d.ComputedStyles(n),
	}
}

// Siblings describes the element children of n's parent other than n,
// skipping editor-only elements
func (d *Document) Siblings(n *html.Node) []entities.ElementData {
	if n.Parent == nil {
		return nil
	}

	var out []entities.ElementData
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n || !isContentElement(c) {
			continue
		}
		out = append(out, d.Describe(c))
	}
	return out
}

// Render serializes the document. With clean set the output carries no
// editor-only attributes or elements; the live tree is left untouched.
func (d *Document) Render(clean bool) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("rendering slide document: %w", err)
	}
	if !clean {
		return buf.String(), nil
	}

	copyDoc, err := Parse(buf.String())
	if err != nil {
		return "", err
	}
	stripEditorMarkup(copyDoc.root)

	buf.Reset()
	if err := html.Render(&buf, copyDoc.root); err != nil {
		return "", fmt.Errorf("rendering clean slide document: %w", err)
	}
	return buf.String(), nil
}

// OuterHTML renders a single node
func OuterHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TextContent concatenates all descendant text, like Node.textContent
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(TextContent(c))
	}
	return b.String()
}

// SetText replaces all children of n with one text node
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Attr returns the value of the named attribute
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries the named attribute
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// ClearMarks removes the given editor attribute from every element
func (d *Document) ClearMarks(key string) {
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode {
			RemoveAttr(n, key)
		}
	})
}

func stripEditorMarkup(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && HasAttr(c, EditorAttr) {
			n.RemoveChild(c)
		} else {
			stripEditorMarkup(c)
		}
		c = next
	}

	if n.Type != html.ElementNode {
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(a.Key, EditorAttrPrefix) || a.Key == "contenteditable" {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func isContentElement(n *html.Node) bool {
	if n.Type != html.ElementNode || HasAttr(n, EditorAttr) {
		return false
	}
	switch n.Data {
	case "script", "style", "template", "noscript":
		return false
	}
	return true
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
