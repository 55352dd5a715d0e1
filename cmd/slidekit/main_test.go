package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

func TestNewLogger(t *testing.T) {
	t.Run("json handler honours the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closeFn, err := newLogger(entities.LoggingConfig{Level: "warn", JSONFormat: true}, &buf)
		require.NoError(t, err)
		defer func() { _ = closeFn() }()

		logger.Info("hidden")
		logger.Warn("shown", "slide", 2)

		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "shown", record["msg"])
		assert.Equal(t, float64(2), record["slide"])
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := newLogger(entities.LoggingConfig{Verbose: true}, &buf)
		require.NoError(t, err)

		logger.Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})

	t.Run("log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "slidekit.log")
		logger, closeFn, err := newLogger(entities.LoggingConfig{File: path}, &bytes.Buffer{})
		require.NoError(t, err)

		logger.Info("to file")
		require.NoError(t, closeFn())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, slogLevel(entities.LogLevelDebug))
	assert.Equal(t, slog.LevelInfo, slogLevel(entities.LogLevelInfo))
	assert.Equal(t, slog.LevelWarn, slogLevel(entities.LogLevelWarn))
	assert.Equal(t, slog.LevelError, slogLevel(entities.LogLevelError))
	assert.Equal(t, slog.LevelInfo, slogLevel(""))
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntP("port", "p", 0, "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("token", "", "")
	cmd.Flags().Bool("verbose", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9000", "--token", "abc", "--verbose"}))

	flags := changedFlags(cmd)
	assert.Equal(t, 9000, flags["port"])
	assert.Equal(t, "abc", flags["token"])
	assert.Equal(t, true, flags["verbose"])
	assert.NotContains(t, flags, "host")

	cfg := config.NewConfigMerger().ApplyFlags(config.GetDefaultConfig(), flags)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.Server.AuthToken)
	assert.Equal(t, "abc", cfg.SaveAPI.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["export"])
	assert.True(t, names["edit"])
}
