package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Remove detaches n and records what is needed to put it back
func (d *Document) Remove(n *html.Node) (entities.RemovedElement, error) {
	if n == nil || n.Parent == nil || n == d.body {
		return entities.RemovedElement{}, fmt.Errorf("element cannot be removed")
	}

	outer, err := OuterHTML(n)
	if err != nil {
		return entities.RemovedElement{}, fmt.Errorf("capturing removed element: %w", err)
	}

	removed := entities.RemovedElement{
		OuterHTML:  outer,
		ParentPath: d.PathOf(n.Parent),
		Index:      childIndex(n),
	}
	n.Parent.RemoveChild(n)
	return removed, nil
}

// Insert re-creates a removed element at its recorded position and returns it
func (d *Document) Insert(removed entities.RemovedElement) (*html.Node, error) {
	parent := d.Resolve(removed.ParentPath)
	if parent == nil {
		return nil, fmt.Errorf("reinsertion parent %q not found", removed.ParentPath)
	}

	nodes, err := html.ParseFragment(strings.NewReader(removed.OuterHTML), parent)
	if err != nil {
		return nil, fmt.Errorf("parsing removed element: %w", err)
	}

	var el *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			el = n
			break
		}
	}
	if el == nil {
		return nil, fmt.Errorf("removed markup holds no element")
	}

	if anchor := childAt(parent, removed.Index); anchor != nil {
		parent.InsertBefore(el, anchor)
	} else {
		parent.AppendChild(el)
	}
	return el, nil
}

func childAt(parent *html.Node, index int) *html.Node {
	i := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if i == index {
			return c
		}
		i++
	}
	return nil
}
