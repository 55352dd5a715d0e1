package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

const yamlDeck = `id: demo
title: Demo
slides:
  - html: '<h1 id="title" style="left: 40px; top: 30px; width: 600px; height: 80px">Hello</h1>'
  - markdown: "# Second"
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDeck(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig() *entities.Config {
	cfg := config.GetDefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.AuthToken = ""
	cfg.Storage = entities.StorageConfig{Driver: "memory"}
	cfg.SaveAPI.BaseURL = ""
	cfg.Logging = entities.LoggingConfig{}
	return cfg
}

func TestValidateServeConfig(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    int
		wantErr string
	}{
		{"valid", "localhost", 3000, ""},
		{"zero port", "localhost", 0, "invalid port number"},
		{"port too high", "localhost", 70000, "invalid port number"},
		{"host with space", "local host", 3000, "invalid host"},
		{"host with bang", "local!host", 3000, "invalid host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServeConfig(&entities.Config{Server: entities.ServerConfig{Host: tt.host, Port: tt.port}})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDeckPath(t *testing.T) {
	assert.NoError(t, validateDeckPath(writeDeck(t, "deck.yaml", yamlDeck)))

	err := validateDeckPath(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accessing deck")

	err = validateDeckPath(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestOpenRepository(t *testing.T) {
	clock := ports.NewRealTimeProvider()

	repo, err := openRepository(entities.StorageConfig{Driver: "memory"}, clock, discardLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = openRepository(entities.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "slides.db")}, clock, discardLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = openRepository(entities.StorageConfig{Driver: "redis"}, clock, discardLogger())
	assert.Error(t, err)
}

func TestPlayerURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/present/demo", playerURL("127.0.0.1:8080", "127.0.0.1", "demo"))
	assert.Equal(t, "http://localhost:8080/present/demo", playerURL("0.0.0.0:8080", "0.0.0.0", "demo"))
	assert.Equal(t, "http://slides.local:9000/present/demo", playerURL("10.0.0.2:9000", "slides.local", "demo"))
}

func TestServeStack_StartAndShutdown(t *testing.T) {
	cfg := testConfig()
	deckPath := writeDeck(t, "deck.yaml", yamlDeck)
	ctx := context.Background()

	stack, err := buildServeStack(ctx, cfg, deckPath, true, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "demo", stack.deck.ID)
	assert.Len(t, stack.deck.Slides, 2)
	assert.Equal(t, 2, stack.player.State().TotalSlides)

	require.NoError(t, stack.start(ctx, cfg, deckPath, true))
	assert.True(t, stack.reload.IsWatching())

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + stack.server.Addr() + "/slides/demo/0")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Hello")

	resp, err = client.Get(playerURL(stack.server.Addr(), cfg.Server.Host, "demo"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, stack.shutdown(time.Second))
	assert.False(t, stack.server.IsRunning())
	assert.False(t, stack.reload.IsWatching())
}

func TestServeStack_BadDeck(t *testing.T) {
	cfg := testConfig()
	deckPath := writeDeck(t, "deck.yaml", "slides: [")

	_, err := buildServeStack(context.Background(), cfg, deckPath, false, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading deck")
}
