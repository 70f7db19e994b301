package optimizer

import (
	"context"

	"platewise/internal/catalog"
	"platewise/internal/models"
)

// rotateOutServings is the serving count at which an item is barred from the
// following plans. Items used once stay eligible so plans may overlap.
const rotateOutServings = 2

// PlanFunc is called with each plan as soon as it is produced
type PlanFunc func(index int, plan *models.PlanResult) error

// GeneratePlans produces up to numPlans alternative plans. It stops quietly at
// the first non-optimal solve, so fewer plans than requested is a normal outcome.
func (o *Optimizer) GeneratePlans(ctx context.Context, cat *catalog.Catalog, req models.PlanRequest, numPlans int) ([]*models.PlanResult, error) {
	return o.GeneratePlansFunc(ctx, cat, req, numPlans, nil)
}

// GeneratePlansFunc is GeneratePlans with a callback per produced plan. An
// error from fn ends the sequence and is returned with the plans so far.
func (o *Optimizer) GeneratePlansFunc(ctx context.Context, cat *catalog.Catalog, req models.PlanRequest, numPlans int, fn PlanFunc) ([]*models.PlanResult, error) {
	plans := make([]*models.PlanResult, 0, max(numPlans, 0))
	var (
		excluded []string
		seen     = make(map[string]bool)
	)

	for i := 0; i < numPlans; i++ {
		result, err := o.OptimizePlan(ctx, cat, req.WithExclusions(excluded))
		if err != nil {
			o.recorder.ObservePlans(numPlans, len(plans))
			return plans, err
		}
		if !result.IsOptimal() {
			o.logger.Info("plan generation stopped early",
				"plan", i+1,
				"requested", numPlans,
				"status", result.Status,
			)
			break
		}

		plans = append(plans, result)
		if fn != nil {
			if err := fn(i, result); err != nil {
				o.recorder.ObservePlans(numPlans, len(plans))
				return plans, err
			}
		}

		for _, item := range result.ItemsSelected {
			if item.Servings >= rotateOutServings && !seen[item.Name] {
				seen[item.Name] = true
				excluded = append(excluded, item.Name)
			}
		}
	}

	o.recorder.ObservePlans(numPlans, len(plans))
	return plans, nil
}
