package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// PathOf returns a CSS selector locating n: "#id" when the id is unique in
// the document, otherwise tag:nth-of-type(n) segments from body. Detached
// nodes yield "".
func (d *Document) PathOf(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if n == d.body {
		return "body"
	}

	if id := Attr(n, "id"); id != "" && d.countID(id) == 1 && !strings.ContainsAny(id, " >") {
		return "#" + id
	}

	var segments []string
	cur := n
	for cur != d.body {
		if cur == nil || cur.Type != html.ElementNode {
			return ""
		}
		segments = append(segments, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
		cur = cur.Parent
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "body > " + strings.Join(segments, " > ")
}

// Resolve finds the element a path produced by PathOf points at, or nil
func (d *Document) Resolve(path string) *html.Node {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return nil
	case path == "body":
		return d.body
	case strings.HasPrefix(path, "#"):
		return d.findID(path[1:])
	}

	parts := strings.Split(path, ">")
	if strings.TrimSpace(parts[0]) != "body" {
		return nil
	}

	cur := d.body
	for _, part := range parts[1:] {
		tag, n, ok := parseSegment(strings.TrimSpace(part))
		if !ok {
			return nil
		}
		cur = nthChildOfType(cur, tag, n)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func parseSegment(seg string) (string, int, bool) {
	open := strings.Index(seg, ":nth-of-type(")
	if open <= 0 || !strings.HasSuffix(seg, ")") {
		return "", 0, false
	}
	n, err := strconv.Atoi(seg[open+len(":nth-of-type(") : len(seg)-1])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return strings.ToLower(seg[:open]), n, true
}

func nthOfType(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			idx++
		}
	}
	return idx
}

func nthChildOfType(parent *html.Node, tag string, n int) *html.Node {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			seen++
			if seen == n {
				return c
			}
		}
	}
	return nil
}

// childIndex is the position of n among all of its parent's child nodes
func childIndex(n *html.Node) int {
	idx := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		idx++
	}
	return idx
}

func (d *Document) findID(id string) *html.Node {
	var found *html.Node
	walk(d.body, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && Attr(n, "id") == id {
			found = n
		}
	})
	return found
}

func (d *Document) countID(id string) int {
	count := 0
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && Attr(n, "id") == id {
			count++
		}
	})
	return count
}
