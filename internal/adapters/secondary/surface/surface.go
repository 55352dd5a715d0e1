// Package surface hosts slide documents at the reference resolution and
// maps coordinates between the frame and its container.
package surface

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// Reference is the logical slide size every frame is laid out at
var Reference = entities.Size{Width: entities.ReferenceWidth, Height: entities.ReferenceHeight}

// ComputeScale returns min(container/reference on each axis, cap). A cap of
// zero or less leaves the scale uncapped.
func ComputeScale(container, reference entities.Size, scaleCap float64) float64 {
	if reference.Width <= 0 || reference.Height <= 0 || container.Width <= 0 || container.Height <= 0 {
		return 0
	}

	scale := math.Min(container.Width/reference.Width, container.Height/reference.Height)
	if scaleCap > 0 {
		scale = math.Min(scale, scaleCap)
	}
	return scale
}

// Surface is a container hosting one scaled frame
type Surface struct {
	mu        sync.RWMutex
	origin    string
	scaleCap  float64
	container entities.Rect
	scale     float64
	frame     *Frame

	subscribers map[int]func(entities.SurfaceGeometry)
	nextSub     int

	logger *slog.Logger
}

// New creates a surface whose frames trust messages from origin
func New(origin string, scaleCap float64, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		origin:      origin,
		scaleCap:    scaleCap,
		subscribers: make(map[int]func(entities.SurfaceGeometry)),
		logger:      logger.With("service", "surface"),
	}
}

// Resize records the container's client rect and recomputes the scale.
// Subscribers are notified with the new geometry.
func (s *Surface) Resize(container entities.Rect) entities.SurfaceGeometry {
	s.mu.Lock()
	s.container = container
	s.scale = ComputeScale(entities.Size{Width: container.Width, Height: container.Height}, Reference, s.scaleCap)
	geometry := s.geometryLocked()
	subs := make([]func(entities.SurfaceGeometry), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("surface resized", "width", container.Width, "height", container.Height, "scale", geometry.Scale)
	for _, fn := range subs {
		fn(geometry)
	}
	return geometry
}

// OnResize registers fn for geometry changes and returns its cancel func
func (s *Surface) OnResize(fn func(entities.SurfaceGeometry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Scale returns the current uniform scale
func (s *Surface) Scale() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale
}

// Geometry returns the current layout
func (s *Surface) Geometry() entities.SurfaceGeometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geometryLocked()
}

func (s *Surface) geometryLocked() entities.SurfaceGeometry {
	return entities.SurfaceGeometry{
		Scale:     s.scale,
		Container: entities.Size{Width: s.container.Width, Height: s.container.Height},
		Frame:     s.frameRectLocked().Translate(-s.container.Left, -s.container.Top),
	}
}

// FrameClientRect returns the frame element's client rect in page coordinates.
// The scaled frame is centered in its container.
func (s *Surface) FrameClientRect() entities.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameRectLocked()
}

func (s *Surface) frameRectLocked() entities.Rect {
	w := Reference.Width * s.scale
	h := Reference.Height * s.scale
	return entities.Rect{
		Left:   s.container.Left + (s.container.Width-w)/2,
		Top:    s.container.Top + (s.container.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// FrameToContainer maps a frame-local point into container-local space
func (s *Surface) FrameToContainer(p entities.Point) entities.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameToContainerLocked(p)
}

func (s *Surface) frameToContainerLocked(p entities.Point) entities.Point {
	frame := s.frameRectLocked()
	return entities.Point{
		X: frame.Left - s.container.Left + p.X*s.scale,
		Y: frame.Top - s.container.Top + p.Y*s.scale,
	}
}

// ContainerToFrame maps a container-local point into frame-local space
func (s *Surface) ContainerToFrame(p entities.Point) entities.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scale == 0 {
		return entities.Point{}
	}
	frame := s.frameRectLocked()
	return entities.Point{
		X: (p.X - (frame.Left - s.container.Left)) / s.scale,
		Y: (p.Y - (frame.Top - s.container.Top)) / s.scale,
	}
}

// ProjectRect maps a frame-local rect (a bounding rect reported by the
// frame) into container-local space for overlays
func (s *Surface) ProjectRect(r entities.Rect) entities.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topLeft := s.frameToContainerLocked(entities.Point{X: r.Left, Y: r.Top})
	return entities.Rect{
		Left:   topLeft.X,
		Top:    topLeft.Y,
		Width:  r.Width * s.scale,
		Height: r.Height * s.scale,
	}
}

// Mount loads html into a new frame, replacing any mounted one. The frame
// is released by Unmount or by its own Close.
func (s *Surface) Mount(ctx context.Context, html string) (*Frame, error) {
	frame, err := NewFrame(ctx, html, s.origin, s.logger)
	if err != nil {
		return nil, fmt.Errorf("mounting frame: %w", err)
	}

	s.mu.Lock()
	previous := s.frame
	s.frame = frame
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return frame, nil
}

// Frame returns the mounted frame, or nil
func (s *Surface) Frame() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Unmount closes the mounted frame
func (s *Surface) Unmount() {
	s.mu.Lock()
	frame := s.frame
	s.frame = nil
	s.mu.Unlock()

	if frame != nil {
		frame.Close()
	}
}
