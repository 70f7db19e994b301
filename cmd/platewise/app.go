package main

import (
	"fmt"

	"platewise/internal/catalog"
	"platewise/internal/config"
	"platewise/internal/database"
	"platewise/internal/monitoring"
	"platewise/internal/optimizer"
	"platewise/internal/solver"
)

// loadCatalog reads the catalog from the configured source
func loadCatalog(c *config.Config) (*catalog.Catalog, error) {
	if c.Catalog.Source == "database" {
		store, err := database.Open(c.Database.Driver, c.Database.DSN, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadCatalog()
	}

	cat, err := catalog.LoadFile(c.Catalog.MenuPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	return cat, nil
}

func newOptimizer(c *config.Config, metrics *monitoring.MetricsCollector) *optimizer.Optimizer {
	s := solver.NewBranchAndBound(solver.Options{
		Timeout:  c.Solver.Timeout,
		MaxNodes: c.Solver.MaxNodes,
	})
	opts := []optimizer.Option{optimizer.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, optimizer.WithRecorder(metrics))
	}
	return optimizer.New(s, opts...)
}
