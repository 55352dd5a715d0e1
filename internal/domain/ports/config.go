package ports

import (
	"context"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// ConfigLoader reads the two config files slidekit knows about: the
// user-wide one and the optional one beside a deck
type ConfigLoader interface {
	// LoadGlobal writes the defaults on first use, then reads the user-wide file
	LoadGlobal(ctx context.Context) (*entities.Config, error)

	// LoadLocal returns nil, nil when deckDir has no config file
	LoadLocal(ctx context.Context, deckDir string) (*entities.Config, error)

	CreateDefaults(ctx context.Context, path string) error

	GetGlobalPath() string

	// GetLocalPath is the deck config in use, or where one would be created
	GetLocalPath(deckDir string) string
}

// ConfigMerger layers configs. A zero field never overrides a set one.
type ConfigMerger interface {
	// Merge with no arguments returns the defaults; later layers win
	Merge(layers ...*entities.Config) *entities.Config

	// ApplyFlags overrides from changed command-line flags, keyed by flag name
	ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config

	// ApplyEnvVars overrides from SLIDEKIT_* variables
	ApplyEnvVars(config *entities.Config) *entities.Config
}

// ConfigService resolves the effective config for one deck
type ConfigService interface {
	// LoadConfig applies defaults, global file, deck file, environment and
	// flags in that order and validates the result
	LoadConfig(ctx context.Context, deckDir string, flags map[string]interface{}) (*entities.Config, error)

	GetDefaultConfig() *entities.Config

	ValidateConfig(config *entities.Config) error

	// CreateGlobalConfig writes the defaults to the user-wide path
	CreateGlobalConfig(ctx context.Context) error
}
