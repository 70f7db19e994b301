package api

import (
	"fmt"

	"platewise/internal/models"
)

// planBody is the JSON body of the optimize routes. Absent fields take the
// configured planner defaults, so every field is a pointer.
type planBody struct {
	TargetCalories     *float64 `json:"target_calories"`
	TargetProtein      *float64 `json:"target_protein"`
	SelectedMeals      []string `json:"selected_meals"`
	MinFruits          *int     `json:"min_fruits"`
	MaxFruits          *int     `json:"max_fruits"`
	CalorieTolerance   *float64 `json:"calorie_tolerance"`
	ProteinTolerance   *float64 `json:"protein_tolerance"`
	DiversityWeight    *float64 `json:"diversity_weight"`
	MaxServingsPerItem *int     `json:"max_servings_per_item"`
	ExcludeItems       []string `json:"exclude_items"`
	NumPlans           *int     `json:"num_plans"`
}

// request merges the body over defaults
func (b *planBody) request(defaults models.PlanRequest) models.PlanRequest {
	req := defaults
	req.SelectedMeals = append([]string{}, defaults.SelectedMeals...)
	if b.TargetCalories != nil {
		req.TargetCalories = *b.TargetCalories
	}
	if b.TargetProtein != nil {
		req.TargetProtein = *b.TargetProtein
	}
	if b.SelectedMeals != nil {
		req.SelectedMeals = b.SelectedMeals
	}
	if b.MinFruits != nil {
		req.MinFruits = *b.MinFruits
	}
	if b.MaxFruits != nil {
		req.MaxFruits = *b.MaxFruits
	}
	if b.CalorieTolerance != nil {
		req.CalorieTolerance = *b.CalorieTolerance
	}
	if b.ProteinTolerance != nil {
		req.ProteinTolerance = *b.ProteinTolerance
	}
	if b.DiversityWeight != nil {
		req.DiversityWeight = *b.DiversityWeight
	}
	if b.MaxServingsPerItem != nil {
		req.MaxServingsPerItem = *b.MaxServingsPerItem
	}
	if b.ExcludeItems != nil {
		req.ExcludeItems = b.ExcludeItems
	}
	return req
}

// numPlans resolves the requested plan count and checks it against maxPlans
func (b *planBody) numPlans(def, maxPlans int) (int, error) {
	n := def
	if b.NumPlans != nil {
		n = *b.NumPlans
	}
	if n < 1 || n > maxPlans {
		return 0, fmt.Errorf("num_plans must be between 1 and %d", maxPlans)
	}
	return n, nil
}
