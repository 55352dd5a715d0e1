package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/test/clock"
)

func TestLoggingMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("test response"))
	})

	wrapped := createLoggingMiddleware(handler, slog.New(slog.NewTextHandler(io.Discard, nil)), clock.NewFake(time.Now()))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Result().StatusCode)
	assert.Equal(t, "test response", w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normal operation", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		createRecoveryMiddleware(handler, logger).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	})

	t.Run("panic recovery", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		createRecoveryMiddleware(handler, logger).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-src 'self'")
}

func TestRateLimiter(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	rl := newRateLimiter(fake)
	rl.limit = 3

	for i := 0; i < 3; i++ {
		assert.True(t, rl.isAllowed("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.isAllowed("10.0.0.1"))
	assert.True(t, rl.isAllowed("10.0.0.2"), "limits are per address")

	fake.Advance(time.Minute + time.Second)
	assert.True(t, rl.isAllowed("10.0.0.1"), "window slides")

	t.Run("middleware answers 429", func(t *testing.T) {
		handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		var last int
		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.3:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			last = w.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})

	t.Run("idle clients are forgotten", func(t *testing.T) {
		fake.Advance(10 * time.Minute)
		require.True(t, rl.isAllowed("10.0.0.9"))
		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.Len(t, rl.clients, 1)
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.5:5555", "192.168.1.5"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", "198.51.100.2"},
		{"garbage header", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1:80", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := &responseWriter{
		ResponseWriter: w,
		status:         http.StatusOK,
	}

	t.Run("write header", func(t *testing.T) {
		wrapped.WriteHeader(http.StatusCreated)
		assert.Equal(t, http.StatusCreated, wrapped.status)
	})

	t.Run("multiple writes", func(t *testing.T) {
		wrapped.size = 0

		n1, err := wrapped.Write([]byte("first "))
		assert.NoError(t, err)
		n2, err := wrapped.Write([]byte("second"))
		assert.NoError(t, err)

		assert.Equal(t, n1+n2, wrapped.size)
	})
}
