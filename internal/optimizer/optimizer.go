// Package optimizer builds meal plans from a food catalog.
//
// A planning request is translated into an integer program (one serving count
// per eligible item), solved, and formatted into a plan grouped by meal.
// GeneratePlans repeats the process with a growing exclusion set to produce
// alternative plans.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"platewise/internal/catalog"
	"platewise/internal/models"
	"platewise/internal/solver"
)

// Recorder receives solve and plan generation measurements
type Recorder interface {
	ObserveSolve(status string, duration time.Duration, nodes int)
	ObservePlans(requested, produced int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSolve(string, time.Duration, int) {}
func (nopRecorder) ObservePlans(int, int)                   {}

// Optimizer turns planning requests into plans. It holds no catalog state, so
// one instance serves concurrent calls against any catalog handle.
type Optimizer struct {
	solver   solver.Solver
	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithLogger sets the logger used for solve diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink
func WithRecorder(r Recorder) Option {
	return func(o *Optimizer) {
		if r != nil {
			o.recorder = r
		}
	}
}

// New creates an optimizer backed by s
func New(s solver.Solver, opts ...Option) *Optimizer {
	o := &Optimizer{
		solver:   s,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizePlan solves a single plan. Invalid meal selections, an empty eligible
// set and non-optimal solves are reported through the result status; the
// returned error is reserved for internal failures.
func (o *Optimizer) OptimizePlan(ctx context.Context, cat *catalog.Catalog, req models.PlanRequest) (*models.PlanResult, error) {
	if cat == nil {
		return nil, catalog.ErrEmptyCatalog
	}

	f, err := formulate(cat, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			o.logger.Debug("plan request rejected", "reason", verr.Message)
			return models.ErrorResult(verr.Message, verr.Meals), nil
		}
		return nil, err
	}

	sol, err := o.solver.Solve(ctx, f.model)
	if err != nil {
		return nil, fmt.Errorf("failed to solve meal plan: %w", err)
	}
	o.recorder.ObserveSolve(string(sol.Status), sol.Duration, sol.Nodes)
	o.logger.Debug("meal plan solved",
		"eligible", len(f.items),
		"constraints", len(f.model.Constraints),
		"status", sol.Status,
		"nodes", sol.Nodes,
		"duration", sol.Duration,
	)

	if sol.Status != solver.StatusOptimal {
		return models.NonOptimalResult(models.PlanStatus(sol.Status), f.meals), nil
	}
	return formatResult(f, sol.Values), nil
}
