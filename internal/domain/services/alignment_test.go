package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/test/clock"
)

func element(id string, r entities.Rect) entities.ElementData {
	return entities.ElementData{ID: id, ElementPath: "#" + id, BoundingRect: r}
}

func TestDetectGuides(t *testing.T) {
	a := element("a", entities.Rect{Left: 100, Top: 100, Width: 200, Height: 50})

	tests := []struct {
		name       string
		dragged    entities.ElementData
		horizontal int
		vertical   int
	}{
		{
			name:       "top edges within threshold",
			dragged:    element("b", entities.Rect{Left: 600, Top: 103, Width: 80, Height: 200}),
			horizontal: 1,
		},
		{
			name:    "top edges exactly at threshold",
			dragged: element("b", entities.Rect{Left: 600, Top: 105, Width: 80, Height: 200}),
		},
		{
			name:     "left and right edges",
			dragged:  element("b", entities.Rect{Left: 98, Top: 400, Width: 204, Height: 90}),
			vertical: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guides := DetectGuides(tt.dragged, []entities.ElementData{a}, 5)

			var h, v int
			for _, g := range guides {
				assert.True(t, g.HasElement("a"))
				assert.True(t, g.HasElement("b"))
				if g.Type == entities.GuideHorizontal {
					h++
				} else {
					v++
				}
			}
			assert.Equal(t, tt.horizontal, h)
			assert.Equal(t, tt.vertical, v)
		})
	}

	t.Run("guide sits at the sibling's edge", func(t *testing.T) {
		b := element("b", entities.Rect{Left: 600, Top: 103, Width: 80, Height: 200})
		guides := DetectGuides(b, []entities.ElementData{a}, 5)
		require.Len(t, guides, 1)
		assert.Equal(t, entities.GuideHorizontal, guides[0].Type)
		assert.Equal(t, 100.0, guides[0].Position)
	})

	t.Run("nearby guides merge with union of ids", func(t *testing.T) {
		c := element("c", entities.Rect{Left: 900, Top: 102, Width: 40, Height: 400})
		b := element("b", entities.Rect{Left: 600, Top: 101, Width: 80, Height: 200})

		guides := DetectGuides(b, []entities.ElementData{a, c}, 5)
		require.Len(t, guides, 1)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, guides[0].ElementIDs)
	})

	t.Run("dragged element is not its own sibling", func(t *testing.T) {
		assert.Empty(t, DetectGuides(a, []entities.ElementData{a}, 5))
	})
}

func TestAlignmentEngine_DragLoop(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	engine := NewAlignmentEngine(fake, 5, nil)

	var mu sync.Mutex
	var published [][]entities.AlignmentGuide
	engine.OnGuides(func(g []entities.AlignmentGuide) {
		mu.Lock()
		published = append(published, g)
		mu.Unlock()
	})

	a := element("a", entities.Rect{Left: 100, Top: 100, Width: 200, Height: 50})
	b := element("b", entities.Rect{Left: 600, Top: 103, Width: 80, Height: 200})
	source := func(context.Context) (entities.ElementData, []entities.ElementData, error) {
		return b, []entities.ElementData{a}, nil
	}

	engine.StartDrag(context.Background(), source)
	assert.True(t, engine.Dragging())
	assert.Empty(t, engine.Guides())

	fake.Advance(FrameInterval)
	assert.Eventually(t, func() bool { return len(engine.Guides()) == 1 }, time.Second, time.Millisecond)

	guide := engine.Guides()[0]
	assert.Equal(t, entities.GuideHorizontal, guide.Type)
	assert.Equal(t, 100.0, guide.Position)
	assert.Contains(t, guide.ElementIDs, "a")

	engine.StopDrag()
	assert.False(t, engine.Dragging())
	assert.Empty(t, engine.Guides())

	mu.Lock()
	last := published[len(published)-1]
	mu.Unlock()
	assert.Nil(t, last)

	// no loop left behind
	fake.Advance(10 * FrameInterval)
	assert.Empty(t, engine.Guides())
}

func TestAlignmentEngine_Disabled(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	engine := NewAlignmentEngine(fake, 5, nil)
	engine.SetEnabled(false)

	engine.StartDrag(context.Background(), func(context.Context) (entities.ElementData, []entities.ElementData, error) {
		t.Fatal("source must not be polled while disabled")
		return entities.ElementData{}, nil, nil
	})
	fake.Advance(FrameInterval)
	assert.False(t, engine.Dragging())
}

func TestComputeGrid(t *testing.T) {
	lines := ComputeGrid(entities.Rect{Left: 10, Top: 20, Width: 100, Height: 50}, 20, 1.25)

	var xs, ys []float64
	for _, l := range lines {
		if l.Type == entities.GuideVertical {
			xs = append(xs, l.Position)
		} else {
			ys = append(ys, l.Position)
		}
	}
	assert.Equal(t, []float64{10, 35, 60, 85, 110}, xs)
	assert.Equal(t, []float64{20, 45, 70}, ys)

	assert.Nil(t, ComputeGrid(entities.Rect{Width: 100, Height: 100}, 20, 0))
	assert.Equal(t, 40.0, Snap(47, 20))
	assert.Equal(t, 60.0, Snap(51, 20))
}

func TestGridOverlay_RecomputesOnResizeOnly(t *testing.T) {
	grid := NewGridOverlay(20)
	grid.Update(entities.SurfaceGeometry{Scale: 0.5, Frame: entities.Rect{Width: 640, Height: 360}})

	assert.Nil(t, grid.Lines())
	grid.SetVisible(true)
	first := grid.Lines()
	assert.Len(t, first, 65+37)

	for i := 0; i < 10; i++ {
		grid.Lines()
	}
	assert.Equal(t, 1, grid.Recomputes())
}
