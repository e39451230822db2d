// Package logging builds the process-wide zap logger and scrubs credentials
// from anything that ends up in it.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the root logger for the given environment. "local" and "dev"
// get the human-readable development encoder; everything else gets JSON
// production output. The returned logger is created once at startup and
// passed explicitly to every component.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "local", "dev", "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
