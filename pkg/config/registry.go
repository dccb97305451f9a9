package config

import (
	"fmt"

	"github.com/ftplab/ftpd/internal/logger"
	"github.com/ftplab/ftpd/pkg/registry"
)

// InitializeRegistry creates a fully configured Registry from the provided
// configuration: every share in cfg.Shares is validated and registered.
//
// Validation performed:
//   - At least one share must be configured
//   - Every share's backing directory must exist
func InitializeRegistry(cfg *Config) (*registry.Registry, error) {
	logger.Debug("Initializing registry from configuration")

	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Shares) == 0 {
		return nil, fmt.Errorf("no shares configured: at least one share is required")
	}

	reg := registry.NewRegistry()

	for _, shareCfg := range cfg.Shares {
		logger.Debug("Registering share", "name", shareCfg.Name, "path", shareCfg.Path, "read_only", shareCfg.ReadOnly)

		err := reg.AddShare(&registry.ShareConfig{
			Name:     shareCfg.Name,
			Path:     shareCfg.Path,
			ReadOnly: shareCfg.ReadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add share %q: %w", shareCfg.Name, err)
		}
	}
	logger.Info("Registered shares", "count", reg.CountShares())

	return reg, nil
}
