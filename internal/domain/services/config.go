package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// ConfigService resolves the configuration hierarchy:
// defaults, global file, deck-local file, environment, then flags
type ConfigService struct {
	loader ports.ConfigLoader
	merger ports.ConfigMerger
	logger *slog.Logger
}

// NewConfigService creates a new configuration service
func NewConfigService(loader ports.ConfigLoader, merger ports.ConfigMerger) *ConfigService {
	return &ConfigService{
		loader: loader,
		merger: merger,
		logger: slog.Default().With("service", "config"),
	}
}

// LoadConfig loads the complete configuration for a deck directory
func (s *ConfigService) LoadConfig(ctx context.Context, deckDir string, flags map[string]interface{}) (*entities.Config, error) {
	defaultConfig := s.GetDefaultConfig()

	globalConfig, err := s.loader.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	localConfig, err := s.loader.LoadLocal(ctx, deckDir)
	if err != nil {
		return nil, fmt.Errorf("loading local config: %w", err)
	}

	configs := []*entities.Config{defaultConfig}
	if globalConfig != nil {
		configs = append(configs, globalConfig)
	}
	if localConfig != nil {
		s.logger.Debug("applying deck config", "dir", deckDir)
		configs = append(configs, localConfig)
	}

	merged := s.merger.Merge(configs...)
	withEnv := s.merger.ApplyEnvVars(merged)
	final := s.merger.ApplyFlags(withEnv, flags)

	if err := s.ValidateConfig(final); err != nil {
		return nil, fmt.Errorf("final config validation: %w", err)
	}

	return final, nil
}

// GetDefaultConfig returns the default configuration; the merger owns the defaults
func (s *ConfigService) GetDefaultConfig() *entities.Config {
	return s.merger.Merge()
}

// ValidateConfig validates a configuration
func (s *ConfigService) ValidateConfig(config *entities.Config) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	return config.Validate()
}

// CreateGlobalConfig writes the global configuration file with defaults
func (s *ConfigService) CreateGlobalConfig(ctx context.Context) error {
	return s.loader.CreateDefaults(ctx, s.loader.GetGlobalPath())
}

var _ ports.ConfigService = (*ConfigService)(nil)
