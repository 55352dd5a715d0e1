package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// deckConfigs serves fixed global and deck-local layers
type deckConfigs struct {
	global, local *entities.Config
	globalErr     error
	localErr      error
	deckDirs      []string
	created       []string
}

func (d *deckConfigs) LoadGlobal(context.Context) (*entities.Config, error) {
	return d.global, d.globalErr
}

func (d *deckConfigs) LoadLocal(_ context.Context, dir string) (*entities.Config, error) {
	d.deckDirs = append(d.deckDirs, dir)
	return d.local, d.localErr
}

func (d *deckConfigs) CreateDefaults(_ context.Context, path string) error {
	d.created = append(d.created, path)
	return nil
}

func (d *deckConfigs) GetGlobalPath() string { return "/home/presenter/.config/slidekit/config.toml" }
func (d *deckConfigs) GetLocalPath(dir string) string { return dir + "/slidekit.toml" }

// clearConfigEnv keeps the developer's environment out of the merge
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SLIDEKIT_HOST", "SLIDEKIT_PORT", "SLIDEKIT_ENV", "SLIDEKIT_AUTH_TOKEN",
		"SLIDEKIT_EDITOR_ORIGIN", "SLIDEKIT_AUTOSAVE_MS", "SLIDEKIT_SAVE_URL", "SLIDEKIT_SAVE_TOKEN",
		"SLIDEKIT_STORAGE", "SLIDEKIT_STORAGE_PATH", "SLIDEKIT_EXPORT_FORMAT", "SLIDEKIT_CHROME",
		"SLIDEKIT_LOG_LEVEL", "SLIDEKIT_LOG_JSON", "SLIDEKIT_LOG_FILE", "SLIDEKIT_CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func newConfigService(loader *deckConfigs) *ConfigService {
	return NewConfigService(loader, config.NewConfigMerger())
}

func TestConfigService_LoadConfig_LayersSections(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SLIDEKIT_EDITOR_ORIGIN", "http://studio.local:9000")

	loader := &deckConfigs{
		global: &entities.Config{
			Editor:  entities.EditorConfig{GridSize: 10, AutoSaveDebounceMs: 60000},
			SaveAPI: entities.SaveAPIConfig{BaseURL: "https://slides.example.com", MaxRetries: 5},
			Export:  entities.ExportConfig{Format: "pdf", PixelRatio: 3},
		},
		local: &entities.Config{
			Editor: entities.EditorConfig{AutoSaveDebounceMs: 5000},
			Export: entities.ExportConfig{Format: "pptx", ContentElement: "#stage"},
		},
	}
	flags := map[string]interface{}{
		"save-url": "https://review.example.com",
		"user":     "presenter",
		"db":       "/tmp/q3.db",
	}

	cfg, err := newConfigService(loader).LoadConfig(context.Background(), "/decks/q3", flags)
	require.NoError(t, err)

	assert.Equal(t, []string{"/decks/q3"}, loader.deckDirs)

	assert.Equal(t, 10.0, cfg.Editor.GridSize, "global value survives a deck file that leaves it unset")
	assert.Equal(t, 5000, cfg.Editor.AutoSaveDebounceMs, "deck file wins over global")
	assert.Equal(t, "http://studio.local:9000", cfg.Editor.GetOrigin(), "environment wins over files")
	assert.Equal(t, 50, cfg.Editor.MaxHistory)
	assert.Equal(t, 1.2, cfg.Editor.PreviewScaleCap)

	assert.Equal(t, "https://review.example.com", cfg.SaveAPI.BaseURL, "flags win over everything")
	assert.Equal(t, "presenter", cfg.SaveAPI.EditedBy)
	assert.Equal(t, 5, cfg.SaveAPI.MaxRetries)
	assert.Equal(t, 15, cfg.SaveAPI.TimeoutSec)

	assert.Equal(t, entities.ExportFormatPPTX, cfg.Export.GetFormat())
	assert.Equal(t, 3.0, cfg.Export.PixelRatio)
	assert.Equal(t, "#stage", cfg.Export.GetContentElement())
	assert.Equal(t, 30, cfg.Export.TimeoutSec)

	assert.Equal(t, "sqlite", cfg.Storage.Driver, "a database path selects sqlite")
	assert.Equal(t, "/tmp/q3.db", cfg.Storage.Path)
}

func TestConfigService_LoadConfig_DeckWithoutConfig(t *testing.T) {
	clearConfigEnv(t)

	loader := &deckConfigs{
		global: &entities.Config{Export: entities.ExportConfig{SettleDelayMs: 1500}},
	}

	cfg, err := newConfigService(loader).LoadConfig(context.Background(), "/decks/bare", nil)
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Export.GetSettleDelay())
	assert.Equal(t, entities.ExportFormatPDF, cfg.Export.GetFormat())
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestConfigService_LoadConfig_RejectsInvalidSections(t *testing.T) {
	tests := []struct {
		name  string
		local *entities.Config
		flags map[string]interface{}
		want  string
	}{
		{
			name:  "editor origin without scheme",
			local: &entities.Config{Editor: entities.EditorConfig{Origin: "studio.local"}},
			want:  "editor config",
		},
		{
			name:  "negative alignment threshold",
			local: &entities.Config{Editor: entities.EditorConfig{AlignmentThreshold: -2}},
			want:  "alignment threshold",
		},
		{
			name:  "save api over ftp",
			local: &entities.Config{SaveAPI: entities.SaveAPIConfig{BaseURL: "ftp://slides.example.com"}},
			want:  "save api config",
		},
		{
			name:  "negative save retries",
			local: &entities.Config{SaveAPI: entities.SaveAPIConfig{MaxRetries: -1}},
			want:  "max retries",
		},
		{
			name:  "unknown export format from deck",
			local: &entities.Config{Export: entities.ExportConfig{Format: "gif"}},
			want:  "export config",
		},
		{
			name:  "unknown export format from flag",
			flags: map[string]interface{}{"format": "keynote"},
			want:  "unsupported export format: keynote",
		},
		{
			name:  "sqlite without a path",
			flags: map[string]interface{}{"storage": "sqlite"},
			want:  "storage config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)

			loader := &deckConfigs{global: &entities.Config{}, local: tt.local}
			_, err := newConfigService(loader).LoadConfig(context.Background(), "/decks/q3", tt.flags)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "final config validation")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigService_LoadConfig_LoaderErrors(t *testing.T) {
	unreadable := errors.New("permission denied")

	t.Run("global", func(t *testing.T) {
		loader := &deckConfigs{globalErr: unreadable}

		_, err := newConfigService(loader).LoadConfig(context.Background(), "/decks/q3", nil)
		require.ErrorIs(t, err, unreadable)
		assert.Contains(t, err.Error(), "loading global config")
		assert.Empty(t, loader.deckDirs, "the deck file is not read after the global file fails")
	})

	t.Run("deck", func(t *testing.T) {
		loader := &deckConfigs{global: &entities.Config{}, localErr: unreadable}

		_, err := newConfigService(loader).LoadConfig(context.Background(), "/decks/q3", nil)
		require.ErrorIs(t, err, unreadable)
		assert.Contains(t, err.Error(), "loading local config")
	})
}

func TestConfigService_GetDefaultConfig(t *testing.T) {
	clearConfigEnv(t)

	cfg := newConfigService(&deckConfigs{}).GetDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Editor.MaxHistory)
	assert.Equal(t, 30000, cfg.Editor.AutoSaveDebounceMs)
	assert.Equal(t, 3, cfg.SaveAPI.MaxRetries)
	assert.Equal(t, "body", cfg.Export.ContentElement)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestConfigService_ValidateConfig(t *testing.T) {
	svc := newConfigService(&deckConfigs{})

	err := svc.ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	err = svc.ValidateConfig(&entities.Config{Export: entities.ExportConfig{PixelRatio: -1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixel ratio")
}

func TestConfigService_CreateGlobalConfig(t *testing.T) {
	loader := &deckConfigs{}

	require.NoError(t, newConfigService(loader).CreateGlobalConfig(context.Background()))
	assert.Equal(t, []string{loader.GetGlobalPath()}, loader.created)
}
