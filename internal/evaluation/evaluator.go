// Package evaluation scores finished meal plans against the request that
// produced them and renders them for people.
package evaluation

import (
	"math"

	"platewise/internal/models"
)

// Score measures how closely a plan meets its request
type Score struct {
	CalorieDeviation float64 `json:"calorie_deviation"`
	ProteinDeviation float64 `json:"protein_deviation"`
	// CalorieAccuracy is 1 at the target and 0 at the tolerance edge or beyond
	CalorieAccuracy float64 `json:"calorie_accuracy"`
	ProteinAccuracy float64 `json:"protein_accuracy"`
	FruitServings   int     `json:"fruit_servings"`
	TotalServings   int     `json:"total_servings"`
	DistinctItems   int     `json:"distinct_items"`
	// MealCoverage is the share of selected meals with at least one item
	MealCoverage float64 `json:"meal_coverage"`
}

// Evaluate scores plan against req. Non-optimal plans score zero.
func Evaluate(plan *models.PlanResult, req models.PlanRequest) Score {
	if plan == nil || !plan.IsOptimal() {
		return Score{}
	}

	s := Score{
		CalorieDeviation: plan.Totals.Calories - req.TargetCalories,
		ProteinDeviation: plan.Totals.Protein - req.TargetProtein,
		FruitServings:    plan.FruitServings(),
		DistinctItems:    plan.NumItems,
	}
	s.CalorieAccuracy = accuracy(s.CalorieDeviation, req.CalorieTolerance)
	s.ProteinAccuracy = accuracy(s.ProteinDeviation, req.ProteinTolerance)
	for _, item := range plan.ItemsSelected {
		s.TotalServings += item.Servings
	}

	if len(plan.SelectedMeals) > 0 {
		covered := 0
		for _, m := range plan.SelectedMeals {
			if len(plan.Meals[m]) > 0 {
				covered++
			}
		}
		s.MealCoverage = float64(covered) / float64(len(plan.SelectedMeals))
	}
	return s
}

func accuracy(deviation, tolerance float64) float64 {
	if tolerance <= 0 {
		if deviation == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-math.Abs(deviation)/tolerance)
}

// Overlap is the Jaccard similarity of the item names in two plans
func Overlap(a, b *models.PlanResult) float64 {
	names := make(map[string]int)
	for _, item := range a.ItemsSelected {
		names[item.Name] |= 1
	}
	for _, item := range b.ItemsSelected {
		names[item.Name] |= 2
	}
	if len(names) == 0 {
		return 0
	}
	shared := 0
	for _, mask := range names {
		if mask == 3 {
			shared++
		}
	}
	return float64(shared) / float64(len(names))
}

// AverageOverlap is the mean pairwise overlap across plans. Fewer than two
// plans overlap by zero.
func AverageOverlap(plans []*models.PlanResult) float64 {
	if len(plans) < 2 {
		return 0
	}
	total, pairs := 0.0, 0
	for i := range plans {
		for j := i + 1; j < len(plans); j++ {
			total += Overlap(plans[i], plans[j])
			pairs++
		}
	}
	return total / float64(pairs)
}
