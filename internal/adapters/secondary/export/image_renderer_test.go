package export

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

const rasterSlide = `<body style="background-color: #ffffff">
<div id="box" style="left: 100px; top: 100px; width: 200px; height: 100px; background-color: red"></div>
<h1 style="left: 400px; top: 300px; width: 600px; height: 80px; color: #112233">Hello</h1>
</body>`

func TestImageRenderer_CapturePaintsBoxes(t *testing.T) {
	ctx := context.Background()
	r := NewImageRenderer()

	page, err := r.NewPage(ctx, entities.Size{Width: 1280, Height: 720}, 2)
	require.NoError(t, err)
	defer func() { _ = page.Close(context.Background()) }()

	require.NoError(t, page.Load(ctx, rasterSlide))
	data, err := page.Capture(ctx, "body")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2560, img.Bounds().Dx())
	assert.Equal(t, 1440, img.Bounds().Dy())

	r32, g32, b32, _ := img.At(300, 300).RGBA()
	assert.Equal(t, uint32(0xffff), r32)
	assert.Equal(t, uint32(0), g32)
	assert.Equal(t, uint32(0), b32)

	r32, g32, b32, _ = img.At(20, 20).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r32, g32, b32})
}

func TestImageRenderer_CaptureElement(t *testing.T) {
	ctx := context.Background()
	page, err := NewImageRenderer().NewPage(ctx, entities.Size{Width: 1280, Height: 720}, 1)
	require.NoError(t, err)
	require.NoError(t, page.Load(ctx, rasterSlide))

	data, err := page.Capture(ctx, "#box")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	_, err = page.Capture(ctx, "#missing")
	assert.Error(t, err)

	require.NoError(t, page.Close(context.Background()))
	_, err = page.Capture(ctx, "body")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.Color
	}{
		{"red", color.RGBA{255, 0, 0, 255}},
		{"#fff", color.RGBA{255, 255, 255, 255}},
		{"#112233", color.RGBA{0x11, 0x22, 0x33, 255}},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}},
		{"rgba(0, 0, 0, 0)", color.NRGBA{0, 0, 0, 0}},
		{"hsl(0, 0%, 0%)", fallback},
		{"#12", fallback},
		{"", fallback},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseColor(tt.in, fallback))
		})
	}
}
