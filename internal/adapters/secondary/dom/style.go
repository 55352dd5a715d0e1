package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type declaration struct {
	prop  string
	value string
}

// trackedStyles are reported in ElementData.ComputedStyles
var trackedStyles = []string{
	"color", "background-color", "font-family", "font-size", "font-weight",
	"text-align", "position", "left", "top", "width", "height",
}

var inheritedStyles = map[string]bool{
	"color":       true,
	"font-family": true,
	"font-size":   true,
	"font-weight": true,
	"text-align":  true,
}

var initialStyles = map[string]string{
	"color":            "rgb(0, 0, 0)",
	"background-color": "rgba(0, 0, 0, 0)",
	"font-family":      "sans-serif",
	"font-size":        "16px",
	"font-weight":      "400",
	"text-align":       "start",
	"position":         "static",
	"left":             "auto",
	"top":              "auto",
}

func parseStyle(s string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		decls = setDeclaration(decls, prop, value)
	}
	return decls
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func setDeclaration(decls []declaration, prop, value string) []declaration {
	for i := range decls {
		if decls[i].prop == prop {
			if value == "" {
				return append(decls[:i], decls[i+1:]...)
			}
			decls[i].value = value
			return decls
		}
	}
	if value == "" {
		return decls
	}
	return append(decls, declaration{prop: prop, value: value})
}

// InlineStyle returns the inline value of prop, or ""
func InlineStyle(n *html.Node, prop string) string {
	prop = strings.ToLower(prop)
	for _, d := range parseStyle(Attr(n, "style")) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// InlineStyles returns every inline property of n keyed by lowercase name
func InlineStyles(n *html.Node) map[string]string {
	decls := parseStyle(Attr(n, "style"))
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		out[d.prop] = d.value
	}
	return out
}

// SetStyle writes one inline property. An empty value removes it.
func SetStyle(n *html.Node, prop, value string) {
	decls := setDeclaration(parseStyle(Attr(n, "style")), strings.ToLower(strings.TrimSpace(prop)), strings.TrimSpace(value))
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", formatStyle(decls))
}

// ComputedStyles resolves the tracked properties for n: inline values,
// then inherited values from ancestors, then initial values. Width and
// height come from the layout box.
func (d *Document) ComputedStyles(n *html.Node) map[string]string {
	styles := make(map[string]string, len(trackedStyles))
	rect := d.BoundingRect(n)

	for _, prop := range trackedStyles {
		switch prop {
		case "width":
			styles[prop] = formatPx(rect.Width)
			continue
		case "height":
			styles[prop] = formatPx(rect.Height)
			continue
		}

		value := InlineStyle(n, prop)
		if value == "" && inheritedStyles[prop] {
			for p := n.Parent; p != nil && value == ""; p = p.Parent {
				if p.Type == html.ElementNode {
					value = InlineStyle(p, prop)
				}
			}
		}
		if value == "" {
			value = initialStyles[prop]
		}
		styles[prop] = value
	}
	return styles
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// parsePx reads a pixel length ("12px", "12.5px" or a bare number)
func parsePx(value string) (float64, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "px"))
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
