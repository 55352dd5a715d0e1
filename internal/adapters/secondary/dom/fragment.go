package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// InnerHTML renders the children of n
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// SetInnerHTML replaces the children of n with the parsed fragment
func SetInnerHTML(n *html.Node, src string) error {
	context := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// RemoveElements deletes every element with one of the given tags and
// returns how many were removed
func (d *Document) RemoveElements(tags ...string) int {
	drop := make(map[string]bool, len(tags))
	for _, t := range tags {
		drop[t] = true
	}

	var doomed []*html.Node
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && drop[n.Data] {
			doomed = append(doomed, n)
		}
	})

	removed := 0
	for _, n := range doomed {
		// a doomed ancestor may already have taken n with it
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
			removed++
		}
	}
	return removed
}
