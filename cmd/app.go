package cmd

import (
	"fmt"

	"collection-mapper/core/config"
	"collection-mapper/core/equivalency"
	"collection-mapper/core/logger"
	"collection-mapper/core/reconcile"
	"collection-mapper/feature/things"

	"go.uber.org/zap"
)

// newEngine registers every feature's relations and freezes the registry.
func newEngine() (*reconcile.Engine, error) {
	registry := equivalency.NewRegistry()
	if err := things.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register things relation: %w", err)
	}
	registry.Freeze()

	return reconcile.NewEngine(registry, reconcile.DefaultChain())
}

// bootstrap loads configuration and builds the logger every command starts from.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l = l.With(zap.String("database", cfg.Database.Driver))
	return cfg, l, nil
}
