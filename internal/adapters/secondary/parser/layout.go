package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/dom"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Rendered markdown is stacked top to bottom inside these margins, one
// absolutely positioned box per top-level block, so every block can be
// selected and dragged on its own.
const (
	marginX   = 80.0
	marginTop = 60.0
	blockGap  = 16.0
)

type blockMetrics struct {
	fontSize   float64
	lineHeight float64
}

var headingMetrics = map[string]blockMetrics{
	"h1": {fontSize: 48, lineHeight: 60},
	"h2": {fontSize: 36, lineHeight: 46},
	"h3": {fontSize: 28, lineHeight: 36},
}

var bodyMetrics = blockMetrics{fontSize: 24, lineHeight: 34}

// arrangeBlocks gives each top-level element of fragment an explicit box
func arrangeBlocks(fragment string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parsing rendered slide: %w", err)
	}

	width := float64(entities.ReferenceWidth) - 2*marginX
	top := marginTop

	var buf bytes.Buffer
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		if n.Type == html.ElementNode {
			m := metricsFor(n.Data)
			height := estimateHeight(n, width, m)

			dom.SetStyle(n, "left", px(marginX))
			dom.SetStyle(n, "top", px(top))
			dom.SetStyle(n, "width", px(width))
			dom.SetStyle(n, "height", px(height))
			dom.SetStyle(n, "font-size", px(m.fontSize))

			top += height + blockGap
		}
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("rendering arranged slide: %w", err)
		}
	}
	return buf.String(), nil
}

func metricsFor(tag string) blockMetrics {
	if m, ok := headingMetrics[tag]; ok {
		return m
	}
	return bodyMetrics
}

// estimateHeight guesses the rendered height of a block from its text,
// assuming an average glyph is half the font size wide
func estimateHeight(n *html.Node, width float64, m blockMetrics) float64 {
	perLine := int(width / (m.fontSize * 0.5))

	lines := 0
	switch n.Data {
	case "ul", "ol", "table", "thead", "tbody":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				lines += wrappedLines(dom.TextContent(c), perLine)
			}
		}
	case "pre":
		lines = strings.Count(strings.TrimRight(dom.TextContent(n), "\n"), "\n") + 1
	case "img":
		return 320
	default:
		lines = wrappedLines(dom.TextContent(n), perLine)
	}

	if lines < 1 {
		lines = 1
	}
	return float64(lines) * m.lineHeight
}

func wrappedLines(text string, perLine int) int {
	text = strings.TrimSpace(text)
	if text == "" || perLine <= 0 {
		return 1
	}
	total := 0
	for _, line := range strings.Split(text, "\n") {
		total += int(math.Max(1, math.Ceil(float64(utf8.RuneCountInString(line))/float64(perLine))))
	}
	return total
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
