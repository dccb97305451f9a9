package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags plus
// the cross-field rules the tags cannot express (unique share names, passive
// range completeness). It never mutates the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := validatePassiveRange(&cfg.Server); err != nil {
		return err
	}

	return validateShares(cfg.Shares)
}

// validatePassiveRange requires the passive port range to be given as a
// complete pair. A half-open range would silently fall back to kernel-picked
// ports.
func validatePassiveRange(cfg *ServerConfig) error {
	if (cfg.PassivePortMin == 0) != (cfg.PassivePortMax == 0) {
		return fmt.Errorf("invalid configuration: passive_port_min and passive_port_max must be set together")
	}
	return nil
}

// formatValidationErrors renders validator errors into one readable line per
// offending field.
func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on the %q rule (value: %v)",
			fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return strings.Join(msgs, "; ")
}

// validateShares enforces rules across the share list.
func validateShares(shares []ShareConfig) error {
	seen := make(map[string]bool, len(shares))
	for i, share := range shares {
		if seen[share.Name] {
			return fmt.Errorf("invalid configuration: duplicate share name %q (share %d)", share.Name, i)
		}
		seen[share.Name] = true
	}
	return nil
}
