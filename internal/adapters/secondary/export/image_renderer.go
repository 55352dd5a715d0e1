package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/dom"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// ImageRenderer paints slides without a browser: boxes come from the
// document's inline layout, text is drawn with the embedded Go fonts.
// It is the fallback when no Chrome is available.
type ImageRenderer struct {
	once    sync.Once
	regular *truetype.Font
	bold    *truetype.Font
	err     error
}

var _ ports.PageFactory = (*ImageRenderer)(nil)

// NewImageRenderer creates the browserless page factory
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{}
}

// Name identifies the renderer in export results
func (r *ImageRenderer) Name() string {
	return "raster"
}

// NewPage returns an off-screen canvas page
func (r *ImageRenderer) NewPage(ctx context.Context, size entities.Size, pixelRatio float64) (ports.OffscreenPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %gx%g", size.Width, size.Height)
	}
	if err := r.loadFonts(); err != nil {
		return nil, err
	}
	return &imagePage{renderer: r, size: size, ratio: pixelRatio}, nil
}

// Close is a no-op; the renderer holds no external resources
func (r *ImageRenderer) Close() error {
	return nil
}

func (r *ImageRenderer) loadFonts() error {
	r.once.Do(func() {
		r.regular, r.err = truetype.Parse(goregular.TTF)
		if r.err != nil {
			r.err = fmt.Errorf("parsing embedded font: %w", r.err)
			return
		}
		r.bold, r.err = truetype.Parse(gobold.TTF)
		if r.err != nil {
			r.err = fmt.Errorf("parsing embedded bold font: %w", r.err)
		}
	})
	return r.err
}

type imagePage struct {
	renderer *ImageRenderer
	size     entities.Size
	ratio    float64
	doc      *dom.Document
	closed   bool
}

func (p *imagePage) Load(ctx context.Context, html string) error {
	if p.closed {
		return errors.New("page is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := dom.Parse(html)
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

func (p *imagePage) Capture(ctx context.Context, selector string) ([]byte, error) {
	if p.closed {
		return nil, errors.New("page is closed")
	}
	if p.doc == nil {
		return nil, errors.New("no document loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	area := entities.Rect{Width: p.size.Width, Height: p.size.Height}
	if selector != "" && selector != "body" {
		n := p.doc.Resolve(selector)
		if n == nil {
			return nil, fmt.Errorf("no element matches %s", selector)
		}
		area = p.doc.BoundingRect(n)
	}

	ratio := p.ratio
	if ratio <= 0 {
		ratio = 1
	}
	width := int(area.Width * ratio)
	height := int(area.Height * ratio)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%s has an empty box", selector)
	}

	dc := gg.NewContext(width, height)
	dc.Scale(ratio, ratio)
	dc.Translate(-area.Left, -area.Top)

	bodyStyles := p.doc.ComputedStyles(p.doc.Body())
	dc.SetColor(parseColor(bodyStyles["background-color"], color.White))
	dc.DrawRectangle(area.Left, area.Top, area.Width, area.Height)
	dc.Fill()

	for _, box := range p.doc.Layout() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.paint(dc, box)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *imagePage) Close(context.Context) error {
	p.closed = true
	p.doc = nil
	return nil
}

func (p *imagePage) paint(dc *gg.Context, box dom.Box) {
	if bg := parseColor(box.Styles["background-color"], color.Transparent); !isTransparent(bg) {
		dc.SetColor(bg)
		dc.DrawRectangle(box.Rect.Left, box.Rect.Top, box.Rect.Width, box.Rect.Height)
		dc.Fill()
	}

	if box.Text == "" {
		return
	}

	size := 16.0
	if v, err := strconv.ParseFloat(strings.TrimSuffix(box.Styles["font-size"], "px"), 64); err == nil && v > 0 {
		size = v
	}
	font := p.renderer.regular
	if w, err := strconv.Atoi(box.Styles["font-weight"]); (err == nil && w >= 600) || box.Styles["font-weight"] == "bold" || isHeading(box.Tag) {
		font = p.renderer.bold
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	dc.SetColor(parseColor(box.Styles["color"], color.Black))

	ax, x := 0.0, box.Rect.Left
	switch box.Styles["text-align"] {
	case "center":
		ax, x = 0.5, box.Rect.CenterX()
	case "right", "end":
		ax, x = 1, box.Rect.Right()
	}

	lineHeight := size * 1.3
	y := box.Rect.Top + size
	for _, line := range dc.WordWrap(box.Text, box.Rect.Width) {
		if y > box.Rect.Bottom()+size {
			break
		}
		dc.DrawStringAnchored(line, x, y, ax, 0)
		y += lineHeight
	}
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "strong", "b", "th":
		return true
	}
	return false
}

func isTransparent(c color.Color) bool {
	_, _, _, a := c.RGBA()
	return a == 0
}

var namedColors = map[string]color.Color{
	"black":       color.Black,
	"white":       color.White,
	"transparent": color.Transparent,
	"red":         color.RGBA{255, 0, 0, 255},
	"green":       color.RGBA{0, 128, 0, 255},
	"blue":        color.RGBA{0, 0, 255, 255},
	"gray":        color.RGBA{128, 128, 128, 255},
	"grey":        color.RGBA{128, 128, 128, 255},
	"yellow":      color.RGBA{255, 255, 0, 255},
	"orange":      color.RGBA{255, 165, 0, 255},
	"purple":      color.RGBA{128, 0, 128, 255},
}

// parseColor understands named colors, #rgb, #rrggbb, rgb() and rgba().
// Anything else yields fallback.
func parseColor(value string, fallback color.Color) color.Color {
	value = strings.ToLower(strings.TrimSpace(value))
	if c, ok := namedColors[value]; ok {
		return c
	}

	if strings.HasPrefix(value, "#") {
		hex := value[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return fallback
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return fallback
		}
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
	}

	open, closing := strings.IndexByte(value, '('), strings.LastIndexByte(value, ')')
	if open < 0 || closing < open {
		return fallback
	}
	fn := value[:open]
	if fn != "rgb" && fn != "rgba" {
		return fallback
	}
	parts := strings.Split(value[open+1:closing], ",")
	if len(parts) < 3 {
		return fallback
	}

	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return fallback
		}
		rgb[i] = uint8(v)
	}
	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return fallback
		}
		alpha = a
	}
	return color.NRGBA{rgb[0], rgb[1], rgb[2], uint8(alpha*255 + 0.5)}
}
