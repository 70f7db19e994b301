package models

import (
	"fmt"
	"strings"
)

// PlanStatus is the outcome of a single planning solve
type PlanStatus string

const (
	StatusOptimal    PlanStatus = "Optimal"
	StatusError      PlanStatus = "Error"
	StatusInfeasible PlanStatus = "Infeasible"
	StatusUnbounded  PlanStatus = "Unbounded"
	StatusUndefined  PlanStatus = "Undefined"
	StatusNotSolved  PlanStatus = "Not Solved"
	StatusTimedOut   PlanStatus = "TimedOut"
)

// RelaxConstraintsMessage accompanies every solver-reported non-optimal result
const RelaxConstraintsMessage = "Could not find optimal solution. Try relaxing constraints."

// PlanRequest describes the targets and limits of one planning call
type PlanRequest struct {
	TargetCalories     float64  `json:"target_calories"`
	TargetProtein      float64  `json:"target_protein"`
	SelectedMeals      []string `json:"selected_meals"`
	MinFruits          int      `json:"min_fruits"`
	MaxFruits          int      `json:"max_fruits"`
	CalorieTolerance   float64  `json:"calorie_tolerance"`
	ProteinTolerance   float64  `json:"protein_tolerance"`
	DiversityWeight    float64  `json:"diversity_weight"`
	MaxServingsPerItem int      `json:"max_servings_per_item"`
	ExcludeItems       []string `json:"exclude_items,omitempty"`
}

// Meals returns the selected meals case-folded, with invalid entries dropped
// and duplicates removed. Order of first appearance is kept.
func (r PlanRequest) Meals() []MealTime {
	meals := make([]MealTime, 0, len(PlannableMeals))
	seen := make(map[MealTime]bool, len(PlannableMeals))
	for _, s := range r.SelectedMeals {
		m, ok := ParseMealTime(s)
		if !ok || seen[m] {
			continue
		}
		seen[m] = true
		meals = append(meals, m)
	}
	return meals
}

// ExcludeSet returns the excluded item names as a lookup set
func (r PlanRequest) ExcludeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.ExcludeItems))
	for _, name := range r.ExcludeItems {
		set[name] = struct{}{}
	}
	return set
}

// WithExclusions returns a copy of r whose exclude list also carries names
func (r PlanRequest) WithExclusions(names []string) PlanRequest {
	merged := make([]string, 0, len(r.ExcludeItems)+len(names))
	merged = append(merged, r.ExcludeItems...)
	merged = append(merged, names...)
	r.ExcludeItems = merged
	return r
}

// PlannedItem is a catalog item annotated with its chosen serving count
type PlannedItem struct {
	FoodItem
	Servings int `json:"servings"`
}

// Totals holds nutrient sums across a plan, weighted by servings
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sodium   float64 `json:"sodium"`
}

// Add accumulates item nutrients multiplied by servings
func (t *Totals) Add(item *FoodItem, servings int) {
	s := float64(servings)
	t.Calories += item.Calories * s
	t.Protein += item.Protein * s
	t.Carbs += item.Carbs * s
	t.Fat += item.Fat * s
	t.Fiber += item.Fiber * s
	t.Sodium += item.Sodium * s
}

// PlanResult is the structured outcome of one planning solve
type PlanResult struct {
	Status        PlanStatus                 `json:"status"`
	Message       string                     `json:"message,omitempty"`
	Meals         map[MealTime][]PlannedItem `json:"meals"`
	Totals        Totals                     `json:"totals"`
	ItemsSelected []PlannedItem              `json:"items_selected"`
	NumItems      int                        `json:"num_items"`
	SelectedMeals []MealTime                 `json:"selected_meals,omitempty"`
}

// IsOptimal reports whether the solver proved the plan optimal
func (p *PlanResult) IsOptimal() bool {
	return p.Status == StatusOptimal
}

// FruitServings counts servings of fruit items in the plan
func (p *PlanResult) FruitServings() int {
	total := 0
	for i := range p.ItemsSelected {
		if p.ItemsSelected[i].IsFruit() {
			total += p.ItemsSelected[i].Servings
		}
	}
	return total
}

// ErrorResult builds a validation failure result
func ErrorResult(message string, meals []MealTime) *PlanResult {
	return &PlanResult{
		Status:        StatusError,
		Message:       message,
		Meals:         map[MealTime][]PlannedItem{},
		ItemsSelected: []PlannedItem{},
		SelectedMeals: meals,
	}
}

// NonOptimalResult builds a result for a solve that ended without a proven optimum
func NonOptimalResult(status PlanStatus, meals []MealTime) *PlanResult {
	return &PlanResult{
		Status:        status,
		Message:       RelaxConstraintsMessage,
		Meals:         map[MealTime][]PlannedItem{},
		ItemsSelected: []PlannedItem{},
		SelectedMeals: meals,
	}
}

// JoinMeals renders meals as a comma separated list
func JoinMeals(meals []MealTime) string {
	parts := make([]string, len(meals))
	for i, m := range meals {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

// String implements fmt.Stringer for log lines
func (p *PlanResult) String() string {
	if !p.IsOptimal() {
		return fmt.Sprintf("%s: %s", p.Status, p.Message)
	}
	return fmt.Sprintf("%s: %d items, %.0f cal, %.1fg protein", p.Status, p.NumItems, p.Totals.Calories, p.Totals.Protein)
}
