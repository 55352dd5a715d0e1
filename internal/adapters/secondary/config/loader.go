package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// deckConfigNames are looked up in a deck's directory, first match wins
var deckConfigNames = []string{"slidekit.toml", ".slidekit.toml"}

// credentialKeys hold secrets; the config file carrying them should stay private
var credentialKeys = [][]string{
	{"server", "auth_token"},
	{"save_api", "token"},
}

// TOMLLoader reads the user-wide config file and the optional file that
// sits next to a deck
type TOMLLoader struct {
	globalPath string
	logger     *slog.Logger
}

// NewTOMLLoader creates a loader for $XDG_CONFIG_HOME/slidekit/config.toml,
// falling back to ~/.config
func NewTOMLLoader() *TOMLLoader {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return NewTOMLLoaderAt(filepath.Join(dir, "slidekit", "config.toml"))
}

// NewTOMLLoaderAt creates a loader with an explicit global config path
func NewTOMLLoaderAt(globalPath string) *TOMLLoader {
	return &TOMLLoader{
		globalPath: globalPath,
		logger:     slog.Default().With("component", "config"),
	}
}

// LoadGlobal reads the global file, writing the defaults there first if it is missing
func (l *TOMLLoader) LoadGlobal(ctx context.Context) (*entities.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(l.globalPath); errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("writing default config", "path", l.globalPath)
		if err := l.CreateDefaults(ctx, l.globalPath); err != nil {
			return nil, fmt.Errorf("creating defaults: %w", err)
		}
	}

	return l.loadConfig(l.globalPath)
}

// LoadLocal reads the deck's own config file. A deck without one yields nil.
func (l *TOMLLoader) LoadLocal(ctx context.Context, deckDir string) (*entities.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := findDeckConfig(deckDir)
	if !ok {
		return nil, nil
	}
	return l.loadConfig(path)
}

// CreateDefaults writes the default configuration to path. The file is
// replaced atomically and kept private since it may later hold tokens.
func (l *TOMLLoader) CreateDefaults(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating config file in %s: %w", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	encoder := toml.NewEncoder(tmp)
	encoder.Indent = "  "
	if err := encoder.Encode(GetDefaultConfig()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding config to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("restricting config %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing config %s: %w", path, err)
	}

	return nil
}

// GetGlobalPath returns the path to the global configuration file
func (l *TOMLLoader) GetGlobalPath() string {
	return l.globalPath
}

// GetLocalPath returns the deck config file in use for deckDir, or where a
// new one would go
func (l *TOMLLoader) GetLocalPath(deckDir string) string {
	if path, ok := findDeckConfig(deckDir); ok {
		return path
	}
	return filepath.Join(deckDir, deckConfigNames[0])
}

func findDeckConfig(deckDir string) (string, bool) {
	for _, name := range deckConfigNames {
		path := filepath.Join(deckDir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// loadConfig decodes and validates one file. Keys that match no setting
// fail the load so a misspelt option is never silently ignored.
func (l *TOMLLoader) loadConfig(path string) (*entities.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - global path or a file in the deck directory
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var config entities.Config
	meta, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML from %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	l.checkCredentials(path, meta)
	return &config, nil
}

// checkCredentials warns when a token sits in a file others can read
func (l *TOMLLoader) checkCredentials(path string, meta toml.MetaData) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm()&0o077 == 0 {
		return
	}
	for _, key := range credentialKeys {
		if meta.IsDefined(key...) {
			l.logger.Warn("config file with a token is readable by other users",
				"path", path, "key", strings.Join(key, "."), "mode", info.Mode().Perm().String())
		}
	}
}

var _ ports.ConfigLoader = (*TOMLLoader)(nil)
