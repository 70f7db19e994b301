package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"platewise/internal/api"
	"platewise/internal/catalog"
	"platewise/internal/monitoring"
)

const (
	shutdownTimeout = 10 * time.Second
	reloadDebounce  = 500 * time.Millisecond
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planner HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "API server port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// A missing menu is not fatal; the API reports it until a reload succeeds.
	holder := catalog.NewHolder(nil)
	if cat, err := loadCatalog(cfg); err != nil {
		logger.Error("failed to load catalog", "source", cfg.Catalog.Source, "error", err)
	} else {
		holder.Swap(cat)
		logger.Info("catalog loaded", "source", cat.Source(), "items", cat.Len())
	}

	monitor := monitoring.NewMonitor()
	var metrics *monitoring.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetricsCollector(monitor)
	}

	srv := api.NewServer(cfg, api.Deps{
		Holder:    holder,
		Optimizer: newOptimizer(cfg, metrics),
		Monitor:   monitor,
		Metrics:   metrics,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router,
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("starting API server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Catalog.Watch && cfg.Catalog.Source == "file" {
		w, err := catalog.NewWatcher(cfg.Catalog.MenuPath, holder, reloadDebounce, logger)
		if err != nil {
			logger.Warn("menu watching disabled", "error", err)
		} else {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	return g.Wait()
}
