package services

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// DefaultPlayerScaleCap bounds the player's scale-to-fit
const DefaultPlayerScaleCap = 1.2

// ErrPlayerClosed is returned for navigation while the player is closed
var ErrPlayerClosed = errors.New("player is not open")

// Keyboard keys the player reacts to
const (
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeyEscape     = "Escape"
)

// MouseButton identifies the button of a click
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
)

// PresentationPlayer shows slides full-screen, scaled to fit the viewport.
// Navigation wraps around in both directions.
type PresentationPlayer struct {
	mu       sync.RWMutex
	slides   []entities.Slide
	state    entities.PlayerState
	scaleCap float64
	settle   time.Duration
	clock    ports.TimeProvider
	measure  ports.Timer
	clients  map[string]chan entities.PlayerEvent
	logger   *slog.Logger
}

// NewPresentationPlayer creates a closed player over slides
func NewPresentationPlayer(slides []entities.Slide, clock ports.TimeProvider, settle time.Duration, logger *slog.Logger) *PresentationPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	return &PresentationPlayer{
		slides:   append([]entities.Slide(nil), slides...),
		state:    entities.PlayerState{TotalSlides: len(slides)},
		scaleCap: DefaultPlayerScaleCap,
		settle:   settle,
		clock:    clock,
		clients:  make(map[string]chan entities.PlayerEvent),
		logger:   logger.With("service", "player"),
	}
}

// SetSlides replaces the deck, keeping the current index in range
func (p *PresentationPlayer) SetSlides(slides []entities.Slide) {
	p.mu.Lock()
	p.slides = append([]entities.Slide(nil), slides...)
	p.state.TotalSlides = len(slides)
	if len(slides) == 0 {
		p.state.CurrentSlide = 0
	} else {
		p.state.CurrentSlide = wrap(p.state.CurrentSlide, len(slides))
	}
	p.updateSlideInfoLocked()
	p.mu.Unlock()

	p.broadcast(entities.PlayerEventNavigation)
}

// Open shows the player at start over a viewport. The scale is measured
// after the settle delay so layout has stabilized.
func (p *PresentationPlayer) Open(viewport entities.Size, start int) error {
	p.mu.Lock()
	if len(p.slides) == 0 {
		p.mu.Unlock()
		return errors.New("presentation has no slides")
	}

	p.state.Open = true
	p.state.CurrentSlide = wrap(start, len(p.slides))
	p.state.Viewport = viewport
	p.state.Scale = 0
	p.state.OpenedAt = p.clock.Now()
	p.updateSlideInfoLocked()

	if p.measure != nil {
		p.measure.Stop()
	}
	p.measure = p.clock.AfterFunc(p.settle, func() {
		p.mu.Lock()
		if !p.state.Open {
			p.mu.Unlock()
			return
		}
		p.measure = nil
		p.state.Scale = p.computeScaleLocked()
		p.mu.Unlock()
		p.broadcast(entities.PlayerEventResized)
	})
	p.mu.Unlock()

	p.logger.Info("player opened", "slide", start, "total", len(p.slides))
	p.broadcast(entities.PlayerEventOpened)
	return nil
}

// Resize recomputes the scale for a new viewport
func (p *PresentationPlayer) Resize(viewport entities.Size) {
	p.mu.Lock()
	p.state.Viewport = viewport
	if !p.state.Open {
		p.mu.Unlock()
		return
	}
	p.state.Scale = p.computeScaleLocked()
	p.mu.Unlock()

	p.broadcast(entities.PlayerEventResized)
}

func (p *PresentationPlayer) computeScaleLocked() float64 {
	v := p.state.Viewport
	if v.Width <= 0 || v.Height <= 0 {
		return 0
	}
	sx := v.Width / entities.ReferenceWidth
	sy := v.Height / entities.ReferenceHeight
	return math.Min(math.Min(sx, sy), p.scaleCap)
}

// Close hides the player
func (p *PresentationPlayer) Close() {
	p.mu.Lock()
	if !p.state.Open {
		p.mu.Unlock()
		return
	}
	p.state.Open = false
	if p.measure != nil {
		p.measure.Stop()
		p.measure = nil
	}
	p.mu.Unlock()

	p.logger.Info("player closed")
	p.broadcast(entities.PlayerEventClosed)
}

// Next advances one slide, wrapping to the first
func (p *PresentationPlayer) Next() error {
	return p.step(1)
}

// Previous goes back one slide, wrapping to the last
func (p *PresentationPlayer) Previous() error {
	return p.step(-1)
}

// GoTo jumps to index, taken modulo the slide count
func (p *PresentationPlayer) GoTo(index int) error {
	p.mu.Lock()
	if !p.state.Open {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	p.state.CurrentSlide = wrap(index, len(p.slides))
	p.updateSlideInfoLocked()
	p.mu.Unlock()

	p.broadcast(entities.PlayerEventNavigation)
	return nil
}

func (p *PresentationPlayer) step(delta int) error {
	p.mu.Lock()
	if !p.state.Open {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	p.state.CurrentSlide = wrap(p.state.CurrentSlide+delta, len(p.slides))
	p.updateSlideInfoLocked()
	p.mu.Unlock()

	p.broadcast(entities.PlayerEventNavigation)
	return nil
}

// HandleKey reacts to a key press. It reports whether the key was used.
func (p *PresentationPlayer) HandleKey(key string) bool {
	if !p.IsOpen() {
		return false
	}
	switch key {
	case KeyArrowRight:
		return p.Next() == nil
	case KeyArrowLeft:
		return p.Previous() == nil
	case KeyEscape:
		p.Close()
		return true
	default:
		return false
	}
}

// HandleClick reacts to a click. It reports whether the browser's default
// action (the context menu for right clicks) must be suppressed.
func (p *PresentationPlayer) HandleClick(button MouseButton) bool {
	if !p.IsOpen() {
		return false
	}
	switch button {
	case MouseLeft:
		_ = p.Next()
		return false
	case MouseRight:
		_ = p.Previous()
		return true
	default:
		return false
	}
}

// IsOpen reports whether the player is showing
func (p *PresentationPlayer) IsOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Open
}

// State returns a copy of the player state
func (p *PresentationPlayer) State() entities.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// CurrentSlide returns the slide being shown
func (p *PresentationPlayer) CurrentSlide() (*entities.Slide, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.slides) == 0 {
		return nil, errors.New("presentation has no slides")
	}
	slide := p.slides[p.state.CurrentSlide]
	return &slide, nil
}

// Subscribe adds a client to receive player events
func (p *PresentationPlayer) Subscribe(clientID string) <-chan entities.PlayerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan entities.PlayerEvent, 10)
	p.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from player events
func (p *PresentationPlayer) Unsubscribe(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, exists := p.clients[clientID]; exists {
		close(ch)
		delete(p.clients, clientID)
	}
}

func (p *PresentationPlayer) broadcast(eventType string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	event := entities.PlayerEvent{Type: eventType, State: p.state, Timestamp: p.clock.Now()}
	for clientID, ch := range p.clients {
		select {
		case ch <- event:
		default:
			p.logger.Warn("player client is slow, skipping event", "client", clientID, "event", eventType)
		}
	}
}

// Stop closes the player and all subscriber channels
func (p *PresentationPlayer) Stop() {
	p.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	for clientID, ch := range p.clients {
		close(ch)
		delete(p.clients, clientID)
	}
}

func (p *PresentationPlayer) updateSlideInfoLocked() {
	if p.state.CurrentSlide >= 0 && p.state.CurrentSlide < len(p.slides) {
		p.state.SlideTitle = p.slides[p.state.CurrentSlide].Title()
	}
}

func wrap(index, count int) int {
	if count <= 0 {
		return 0
	}
	return ((index % count) + count) % count
}
