package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

const (
	// DefaultAlignmentThreshold is the snap distance in slide pixels
	DefaultAlignmentThreshold = 5.0

	// FrameInterval paces the drag loop at roughly one animation frame
	FrameInterval = 16 * time.Millisecond
)

type edge struct {
	guide entities.GuideType
	value func(entities.Rect) float64
}

// Horizontal guides come from top/center/bottom, vertical ones from
// left/center/right. Each edge is only compared with the same edge.
var alignmentEdges = []edge{
	{entities.GuideHorizontal, func(r entities.Rect) float64 { return r.Top }},
	{entities.GuideHorizontal, entities.Rect.CenterY},
	{entities.GuideHorizontal, entities.Rect.Bottom},
	{entities.GuideVertical, func(r entities.Rect) float64 { return r.Left }},
	{entities.GuideVertical, entities.Rect.CenterX},
	{entities.GuideVertical, entities.Rect.Right},
}

// DetectGuides compares the dragged element against each sibling and returns
// a guide at the sibling's edge for every edge closer than threshold.
// Guides of the same type within threshold of each other are merged.
func DetectGuides(dragged entities.ElementData, siblings []entities.ElementData, threshold float64) []entities.AlignmentGuide {
	if threshold <= 0 {
		threshold = DefaultAlignmentThreshold
	}

	var guides []entities.AlignmentGuide
	draggedKey := dragged.Key()

	for _, sibling := range siblings {
		if sibling.Key() == draggedKey {
			continue
		}
		for _, e := range alignmentEdges {
			pos := e.value(sibling.BoundingRect)
			if math.Abs(e.value(dragged.BoundingRect)-pos) >= threshold {
				continue
			}
			guides = mergeGuide(guides, entities.AlignmentGuide{
				Type:       e.guide,
				Position:   pos,
				ElementIDs: []string{sibling.Key(), draggedKey},
			}, threshold)
		}
	}

	sort.SliceStable(guides, func(i, j int) bool {
		if guides[i].Type != guides[j].Type {
			return guides[i].Type == entities.GuideHorizontal
		}
		return guides[i].Position < guides[j].Position
	})
	return guides
}

func mergeGuide(guides []entities.AlignmentGuide, g entities.AlignmentGuide, threshold float64) []entities.AlignmentGuide {
	for i := range guides {
		if guides[i].Type != g.Type || math.Abs(guides[i].Position-g.Position) >= threshold {
			continue
		}
		for _, id := range g.ElementIDs {
			if !guides[i].HasElement(id) {
				guides[i].ElementIDs = append(guides[i].ElementIDs, id)
			}
		}
		return guides
	}
	return append(guides, g)
}

// DragSource reports the dragged element and its siblings as they are now
type DragSource func(ctx context.Context) (entities.ElementData, []entities.ElementData, error)

// AlignmentEngine recomputes guides once per frame while a drag is active
type AlignmentEngine struct {
	clock     ports.TimeProvider
	threshold float64
	interval  time.Duration

	mu       sync.Mutex
	enabled  bool
	dragging bool
	guides   []entities.AlignmentGuide
	listener func([]entities.AlignmentGuide)
	cancel   context.CancelFunc
	loopDone chan struct{}

	logger *slog.Logger
}

// NewAlignmentEngine creates an enabled engine
func NewAlignmentEngine(clock ports.TimeProvider, threshold float64, logger *slog.Logger) *AlignmentEngine {
	if threshold <= 0 {
		threshold = DefaultAlignmentThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlignmentEngine{
		clock:     clock,
		threshold: threshold,
		interval:  FrameInterval,
		enabled:   true,
		logger:    logger.With("service", "alignment"),
	}
}

// OnGuides registers the listener receiving every published guide set
func (e *AlignmentEngine) OnGuides(fn func([]entities.AlignmentGuide)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

// StartDrag begins the frame loop, replacing any drag in progress
func (e *AlignmentEngine) StartDrag(ctx context.Context, source DragSource) {
	e.StopDrag()

	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := e.clock.NewTicker(e.interval)
	e.dragging = true
	e.cancel = cancel
	e.loopDone = done
	e.mu.Unlock()

	go e.loop(loopCtx, ticker, source, done)
}

func (e *AlignmentEngine) loop(ctx context.Context, ticker ports.Ticker, source DragSource, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			dragged, siblings, err := source(ctx)
			if err != nil {
				if ctx.Err() == nil {
					e.logger.Debug("reading drag geometry failed", "error", err)
				}
				continue
			}
			e.publish(ctx, DetectGuides(dragged, siblings, e.threshold))
		}
	}
}

func (e *AlignmentEngine) publish(ctx context.Context, guides []entities.AlignmentGuide) {
	e.mu.Lock()
	// a frame computed after the drag ended must not resurrect guides
	if !e.dragging || ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.guides = guides
	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		listener(copyGuides(guides))
	}
}

// StopDrag ends the frame loop and clears guides immediately
func (e *AlignmentEngine) StopDrag() {
	e.mu.Lock()
	if !e.dragging {
		e.mu.Unlock()
		return
	}
	e.dragging = false
	e.cancel()
	done := e.loopDone
	e.cancel, e.loopDone = nil, nil
	e.guides = nil
	listener := e.listener
	e.mu.Unlock()

	<-done
	if listener != nil {
		listener(nil)
	}
}

// SetEnabled turns guide detection on or off. Disabling ends any drag loop.
func (e *AlignmentEngine) SetEnabled(enabled bool) {
	if !enabled {
		e.StopDrag()
	}
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

// Dragging reports whether the frame loop is running
func (e *AlignmentEngine) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dragging
}

// Guides returns the current guide set
func (e *AlignmentEngine) Guides() []entities.AlignmentGuide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyGuides(e.guides)
}

func copyGuides(guides []entities.AlignmentGuide) []entities.AlignmentGuide {
	if guides == nil {
		return nil
	}
	out := make([]entities.AlignmentGuide, len(guides))
	for i, g := range guides {
		g.ElementIDs = append([]string(nil), g.ElementIDs...)
		out[i] = g
	}
	return out
}
