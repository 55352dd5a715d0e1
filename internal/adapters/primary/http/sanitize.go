package http

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/dom"
)

// errContentDropped marks a save the sanitizer would have altered. The
// client keeps its changes and the stored slide is untouched.
var errContentDropped = errors.New("slide content is not allowed")

var (
	unsafeStyleValue = regexp.MustCompile(`(?i)expression\s*\(|javascript:|vbscript:|behavior\s*:|-moz-binding|@import|[\\<>{}]`)
	checkboxType     = regexp.MustCompile(`(?i)^checkbox$`)
	styleURL         = regexp.MustCompile(`(?i)url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")\s]*))\s*\)`)
)

// slideStyles are the inline properties an edited slide may carry
var slideStyles = []string{
	"position", "left", "top", "right", "bottom", "width", "height", "z-index",
	"min-width", "min-height", "max-width", "max-height", "overflow", "visibility",
	"color", "background", "background-color", "background-image", "background-size",
	"background-position", "background-repeat", "opacity",
	"font", "font-size", "font-weight", "font-style", "font-family", "font-variant", "line-height",
	"text-align", "text-decoration", "text-transform", "text-indent", "text-shadow",
	"letter-spacing", "word-spacing", "white-space", "word-break", "vertical-align",
	"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"border", "border-top", "border-right", "border-bottom", "border-left",
	"border-color", "border-width", "border-style", "border-radius",
	"outline", "box-shadow", "box-sizing", "display",
	"transform", "transform-origin", "rotate", "scale", "translate",
	"flex", "flex-direction", "flex-wrap", "justify-content", "align-items", "align-self", "gap",
	"list-style", "list-style-type", "object-fit",
	"fill", "stroke", "stroke-width",
}

var svgElements = []string{
	"svg", "g", "defs", "path", "rect", "circle", "ellipse", "line", "polyline", "polygon",
	"text", "tspan", "lineargradient", "radialgradient", "stop", "clippath",
}

var svgAttrs = []string{
	"viewbox", "xmlns", "preserveaspectratio", "width", "height",
	"x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry", "dx", "dy",
	"d", "points", "transform", "offset", "opacity",
	"fill", "fill-opacity", "fill-rule", "clip-path", "clip-rule",
	"stroke", "stroke-width", "stroke-opacity", "stroke-linecap", "stroke-linejoin", "stroke-dasharray",
	"stop-color", "stop-opacity", "gradientunits", "gradienttransform", "fx", "fy",
	"font-size", "font-family", "font-weight", "text-anchor", "dominant-baseline",
}

// activeElements never reach storage. They are stripped without failing
// the save since the editor cannot produce them.
var activeElements = map[string]bool{
	"script": true, "style": true, "iframe": true, "frame": true, "frameset": true,
	"object": true, "embed": true, "applet": true, "base": true, "link": true,
	"meta": true, "noscript": true, "template": true,
}

// safeStyleValue admits any value free of script vectors whose url()
// references use an allowed scheme
func safeStyleValue(value string) bool {
	if unsafeStyleValue.MatchString(value) {
		return false
	}
	lower := strings.ToLower(value)
	matches := styleURL.FindAllStringSubmatch(value, -1)
	if strings.Count(lower, "url(") != len(matches) {
		return false
	}
	for _, m := range matches {
		if !safeURL(m[1] + m[2] + m[3]) {
			return false
		}
	}
	return true
}

func safeURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(raw), "data:image/")
	}
	return false
}

// createHTMLSanitizer creates the policy applied to saved slide bodies
func createHTMLSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("p", "br", "hr")
	p.AllowElements("strong", "b", "em", "i", "u", "s", "del", "ins", "mark", "sub", "sup", "small", "q", "cite", "abbr")
	p.AllowElements("ul", "ol", "li", "dl", "dt", "dd")
	p.AllowElements("blockquote", "pre", "code", "kbd")
	p.AllowElements("section", "article", "aside", "header", "footer", "nav", "figure", "figcaption")
	p.AllowElements("div", "span")
	p.AllowElements("table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan", "align").OnElements("th", "td")
	p.AllowAttrs("start").OnElements("ol")
	p.AllowAttrs("type").Matching(checkboxType).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowNoAttrs().OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()

	p.AllowAttrs(svgAttrs...).OnElements(svgElements...)
	p.AllowNoAttrs().OnElements(svgElements...)
	p.SkipElementsContent("applet", "template")

	p.AllowAttrs("class", "id", "style", "title", "lang", "dir").Globally()
	p.AllowDataAttributes()
	p.AllowStyles(slideStyles...).MatchingHandler(safeStyleValue).Globally()

	return p
}

// sanitizeSlide cleans the body of a slide document and drops scripts and
// event handlers from the rest; head styles survive untouched. Any other
// markup the policy would remove fails with errContentDropped.
func (s *Server) sanitizeSlide(src string) (string, error) {
	doc, err := dom.Parse(src)
	if err != nil {
		return "", err
	}

	body := doc.Body()
	inner, err := dom.InnerHTML(body)
	if err != nil {
		return "", err
	}
	before := contentShape(body)
	if err := dom.SetInnerHTML(body, s.sanitizer.Sanitize(inner)); err != nil {
		return "", err
	}
	if diff := shapeDiff(before, contentShape(body)); diff != "" {
		return "", fmt.Errorf("%w: %s", errContentDropped, diff)
	}

	var handlers []string
	for _, a := range body.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			handlers = append(handlers, a.Key)
		}
	}
	for _, key := range handlers {
		dom.RemoveAttr(body, key)
	}
	doc.RemoveElements("script", "iframe", "object", "embed", "base")

	return doc.Render(true)
}

// contentShape lists every element under n in document order with the
// attributes and style properties a save must preserve. Active content is
// left out so stripping it does not count as a loss.
func contentShape(n *html.Node) []string {
	var shape []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		shapeOf(c, &shape)
	}
	return shape
}

func shapeOf(n *html.Node, shape *[]string) {
	if n.Type != html.ElementNode {
		return
	}
	tag := strings.ToLower(n.Data)
	if activeElements[tag] {
		return
	}

	var attrs []string
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		switch {
		case strings.HasPrefix(key, "on"), key == "style":
			continue
		case (key == "href" || key == "src") && !safeURL(a.Val):
			continue
		}
		attrs = append(attrs, key)
	}
	sort.Strings(attrs)

	var props []string
	for prop, value := range dom.InlineStyles(n) {
		if safeStyleValue(value) {
			props = append(props, prop)
		}
	}
	sort.Strings(props)

	*shape = append(*shape, fmt.Sprintf("<%s [%s] {%s}>", tag, strings.Join(attrs, " "), strings.Join(props, " ")))
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		shapeOf(c, shape)
	}
}

// shapeDiff describes the first element whose shape changed, or ""
func shapeDiff(before, after []string) string {
	if slices.Equal(before, after) {
		return ""
	}
	for i, want := range before {
		if i >= len(after) {
			return fmt.Sprintf("%s would be removed", want)
		}
		if after[i] != want {
			return fmt.Sprintf("%s would become %s", want, after[i])
		}
	}
	return fmt.Sprintf("unexpected %s", after[len(before)])
}
