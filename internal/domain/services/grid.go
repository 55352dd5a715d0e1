package services

import (
	"math"
	"sync"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// DefaultGridSize is the grid spacing in slide pixels
const DefaultGridSize = 20.0

// GridLine is one overlay line in container coordinates
type GridLine struct {
	Type     entities.GuideType `json:"type"`
	Position float64            `json:"position"`
}

// ComputeGrid returns lines every gridSize*scale pixels inside area,
// starting at its top-left corner
func ComputeGrid(area entities.Rect, gridSize, scale float64) []GridLine {
	step := gridSize * scale
	if step <= 0 || area.Width <= 0 || area.Height <= 0 {
		return nil
	}

	var lines []GridLine
	for i := 0; ; i++ {
		x := area.Left + float64(i)*step
		if x > area.Right() {
			break
		}
		lines = append(lines, GridLine{Type: entities.GuideVertical, Position: x})
	}
	for i := 0; ; i++ {
		y := area.Top + float64(i)*step
		if y > area.Bottom() {
			break
		}
		lines = append(lines, GridLine{Type: entities.GuideHorizontal, Position: y})
	}
	return lines
}

// Snap rounds value to the nearest multiple of gridSize
func Snap(value, gridSize float64) float64 {
	if gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

// GridOverlay keeps the grid lines for the current surface geometry. It is
// recomputed on resize only, never per frame.
type GridOverlay struct {
	mu       sync.RWMutex
	gridSize float64
	visible  bool
	lines    []GridLine
	computes int
}

// NewGridOverlay creates a hidden overlay
func NewGridOverlay(gridSize float64) *GridOverlay {
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	return &GridOverlay{gridSize: gridSize}
}

// Update recomputes the lines for a new geometry; it is meant to be
// registered as a surface resize subscriber
func (g *GridOverlay) Update(geometry entities.SurfaceGeometry) {
	lines := ComputeGrid(geometry.Frame, g.gridSize, geometry.Scale)

	g.mu.Lock()
	g.lines = lines
	g.computes++
	g.mu.Unlock()
}

// SetVisible shows or hides the overlay
func (g *GridOverlay) SetVisible(visible bool) {
	g.mu.Lock()
	g.visible = visible
	g.mu.Unlock()
}

// Lines returns the lines to draw, or nil when hidden
func (g *GridOverlay) Lines() []GridLine {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.visible {
		return nil
	}
	return append([]GridLine(nil), g.lines...)
}

// Snap rounds a frame-local coordinate to this overlay's grid
func (g *GridOverlay) Snap(value float64) float64 {
	return Snap(value, g.gridSize)
}

// GridSize returns the spacing in slide pixels
func (g *GridOverlay) GridSize() float64 {
	return g.gridSize
}

// Recomputes returns how many times the lines have been rebuilt
func (g *GridOverlay) Recomputes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.computes
}
