package ports

import (
	"context"
	"time"
)

// HTTPServer defines the interface for the HTTP server
type HTTPServer interface {
	Start(ctx context.Context, port int, host string) error
	Stop(ctx context.Context) error
	NotifyClients(event UpdateEvent) error
	IsRunning() bool
}

// EventNotifier pushes events to connected websocket clients
type EventNotifier interface {
	NotifyClients(event UpdateEvent) error
}

// UpdateEvent represents an event sent to WebSocket clients
type UpdateEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// UpdateEventType constants
const (
	EventTypeReload     = "reload"
	EventTypeError      = "error"
	EventTypeNavigation = "navigation"
	EventTypeSlideSaved = "slide_saved"
	EventTypeSaveStatus = "save_status"
)
