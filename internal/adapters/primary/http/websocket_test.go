package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event map[string]interface{}
	require.NoError(t, ws.ReadJSON(&event))
	return event
}

func TestWebSocket_ConnectedThenSaveEvents(t *testing.T) {
	f := newFixture(t, entities.ServerConfig{})
	ts := httptest.NewServer(f.server.Handler())
	t.Cleanup(ts.Close)

	clients := []*websocket.Conn{dial(t, ts), dial(t, ts)}
	for _, ws := range clients {
		event := readEvent(t, ws)
		assert.Equal(t, EventTypeConnected, event["type"])
	}

	w := f.do(t, http.MethodPut, "/slides/save", saveBody(3, slideDoc), nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, ws := range clients {
		event := readEvent(t, ws)
		assert.Equal(t, ports.EventTypeSlideSaved, event["type"])
		data := event["data"].(map[string]interface{})
		assert.Equal(t, "deck-1", data["presentationId"])
		assert.Equal(t, float64(4), data["version"])
	}
}

func TestIsValidOrigin(t *testing.T) {
	dev := &Server{config: entities.ServerConfig{}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	prod := &Server{
		config: entities.ServerConfig{Environment: "production", CORSOrigins: []string{"https://slides.example.com", "*.example.org"}},
		logger: dev.logger,
	}

	tests := []struct {
		name   string
		server *Server
		origin string
		want   bool
	}{
		{"no origin", prod, "", true},
		{"dev localhost", dev, "http://localhost:5173", true},
		{"dev private network", dev, "http://192.168.0.10:8080", true},
		{"dev public host", dev, "https://evil.example.net", false},
		{"prod listed", prod, "https://slides.example.com", true},
		{"prod wildcard subdomain", prod, "https://deck.example.org", true},
		{"prod unlisted", prod, "https://evil.example.net", false},
		{"prod localhost", prod, "http://localhost:3000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, tt.server.isValidOrigin(r))
		})
	}
}

func TestIsPrivateClassB(t *testing.T) {
	assert.True(t, isPrivateClassB("172.16.0.1"))
	assert.True(t, isPrivateClassB("172.31.255.255"))
	assert.False(t, isPrivateClassB("172.32.0.1"))
	assert.False(t, isPrivateClassB("10.0.0.1"))

	u, err := url.Parse("http://172.20.1.1:3000")
	require.NoError(t, err)
	assert.True(t, isDevelopmentOrigin(u))
}
