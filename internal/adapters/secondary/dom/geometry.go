package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Layout model: the body is the reference slide size. Every element is
// offset from its parent's box by its inline left/top and takes its inline
// width/height, filling the parent box on any axis it leaves unset.

// BoundingRect returns n's box in frame coordinates
func (d *Document) BoundingRect(n *html.Node) entities.Rect {
	if n == nil || n.Type != html.ElementNode {
		return entities.Rect{}
	}
	if n == d.body {
		r := entities.Rect{Width: entities.ReferenceWidth, Height: entities.ReferenceHeight}
		if w, ok := parsePx(InlineStyle(n, "width")); ok {
			r.Width = w
		}
		if h, ok := parsePx(InlineStyle(n, "height")); ok {
			r.Height = h
		}
		return r
	}

	parent := n.Parent
	for parent != nil && parent.Type != html.ElementNode {
		parent = parent.Parent
	}
	if parent == nil || parent.Data == "html" {
		return entities.Rect{}
	}

	return localRect(n, d.BoundingRect(parent))
}

func localRect(n *html.Node, parent entities.Rect) entities.Rect {
	r := entities.Rect{Left: parent.Left, Top: parent.Top, Width: parent.Width, Height: parent.Height}
	if v, ok := parsePx(InlineStyle(n, "left")); ok {
		r.Left += v
	}
	if v, ok := parsePx(InlineStyle(n, "top")); ok {
		r.Top += v
	}
	if v, ok := parsePx(InlineStyle(n, "width")); ok {
		r.Width = v
	}
	if v, ok := parsePx(InlineStyle(n, "height")); ok {
		r.Height = v
	}
	return r
}

// HitTest returns the topmost content element containing p, the body when
// nothing else does, or nil when p lies outside the slide
func (d *Document) HitTest(p entities.Point) *html.Node {
	if !contains(d.BoundingRect(d.body), p) {
		return nil
	}
	return hit(d.body, d.BoundingRect(d.body), p)
}

func hit(n *html.Node, box entities.Rect, p entities.Point) *html.Node {
	var top *html.Node
	var topBox entities.Rect
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isContentElement(c) {
			continue
		}
		cb := localRect(c, box)
		if contains(cb, p) {
			// later siblings paint over earlier ones
			top, topBox = c, cb
		}
	}
	if top == nil {
		return n
	}
	return hit(top, topBox, p)
}

func contains(r entities.Rect, p entities.Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

// Box is one painted element of a laid-out document
type Box struct {
	Tag    string
	Rect   entities.Rect
	Styles map[string]string
	// Text holds the element's own text nodes, not its descendants'
	Text string
}

// Layout returns the content elements under body in paint order
func (d *Document) Layout() []Box {
	var boxes []Box
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !isContentElement(c) {
				continue
			}
			boxes = append(boxes, Box{
				Tag:    c.Data,
				Rect:   d.BoundingRect(c),
				Styles: d.ComputedStyles(c),
				Text:   ownText(c),
			})
			visit(c)
		}
	}
	visit(d.body)
	return boxes
}

func ownText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if s := strings.TrimSpace(c.Data); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}
