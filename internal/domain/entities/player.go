package entities

import "time"

// PlayerState is the current state of the full-screen player
type PlayerState struct {
	Open         bool      `json:"open"`
	CurrentSlide int       `json:"currentSlide"`
	TotalSlides  int       `json:"totalSlides"`
	Scale        float64   `json:"scale"`
	Viewport     Size      `json:"viewport"`
	SlideTitle   string    `json:"slideTitle"`
	OpenedAt     time.Time `json:"openedAt"`
}

// Progress returns the presentation progress as a percentage
func (p *PlayerState) Progress() float64 {
	if p.TotalSlides == 0 {
		return 0
	}
	return float64(p.CurrentSlide+1) / float64(p.TotalSlides) * 100
}

// PlayerEvent is broadcast to player subscribers on every state change
type PlayerEvent struct {
	Type      string      `json:"type"`
	State     PlayerState `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}

// Player event types
const (
	PlayerEventOpened     = "opened"
	PlayerEventNavigation = "navigation"
	PlayerEventResized    = "resized"
	PlayerEventClosed     = "closed"
)
