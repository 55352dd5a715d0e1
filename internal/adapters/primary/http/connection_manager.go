package http

import (
	"context"
	"sync"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Connection represents a WebSocket connection
type Connection struct {
	ID   string
	Send chan ports.UpdateEvent
}

// ConnectionManager fans events out to WebSocket connections. Only Run
// closes Send channels, except CloseAll during shutdown.
type ConnectionManager struct {
	connections map[string]*Connection
	broadcast   chan ports.UpdateEvent
	register    chan *Connection
	unregister  chan string
	mu          sync.RWMutex
	done        chan struct{}
	doneOnce    sync.Once
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		broadcast:   make(chan ports.UpdateEvent, 256),
		register:    make(chan *Connection),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
}

// Run starts the connection manager main loop
func (cm *ConnectionManager) Run(ctx context.Context) {
	defer cm.doneOnce.Do(func() { close(cm.done) })

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-cm.register:
			cm.mu.Lock()
			cm.connections[conn.ID] = conn
			cm.mu.Unlock()

		case id := <-cm.unregister:
			cm.mu.Lock()
			if conn, ok := cm.connections[id]; ok {
				delete(cm.connections, id)
				close(conn.Send)
			}
			cm.mu.Unlock()

		case event := <-cm.broadcast:
			cm.mu.Lock()
			for id, conn := range cm.connections {
				select {
				case conn.Send <- event:
				default:
					// too slow; dropping it closes the socket
					close(conn.Send)
					delete(cm.connections, id)
				}
			}
			cm.mu.Unlock()
		}
	}
}

// RegisterConnection adds a new connection
func (cm *ConnectionManager) RegisterConnection(conn *Connection) {
	select {
	case cm.register <- conn:
	case <-cm.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (cm *ConnectionManager) Unregister(connID string) {
	select {
	case cm.unregister <- connID:
	case <-cm.done:
	}
}

// Broadcast sends an event to all connections
func (cm *ConnectionManager) Broadcast(event ports.UpdateEvent) {
	select {
	case cm.broadcast <- event:
	case <-cm.done:
	}
}

// Count returns the number of registered connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes all connections
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, conn := range cm.connections {
		close(conn.Send)
		delete(cm.connections, id)
	}
}
