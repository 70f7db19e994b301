package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanRequest_Meals(t *testing.T) {
	req := PlanRequest{SelectedMeals: []string{"Dinner", "brunch", " lunch ", "dinner", "LUNCH"}}
	assert.Equal(t, []MealTime{MealDinner, MealLunch}, req.Meals())

	assert.Empty(t, PlanRequest{}.Meals())
}

func TestPlanRequest_WithExclusions(t *testing.T) {
	base := PlanRequest{ExcludeItems: make([]string, 1, 4)}
	base.ExcludeItems[0] = "Soup"

	next := base.WithExclusions([]string{"Rice"})
	other := base.WithExclusions([]string{"Fish"})

	assert.Equal(t, []string{"Soup"}, base.ExcludeItems)
	assert.Equal(t, []string{"Soup", "Rice"}, next.ExcludeItems)
	assert.Equal(t, []string{"Soup", "Fish"}, other.ExcludeItems)

	set := next.ExcludeSet()
	assert.Contains(t, set, "Rice")
	assert.NotContains(t, set, "Fish")
}

func TestTotals_Add(t *testing.T) {
	var totals Totals
	totals.Add(&FoodItem{Calories: 100, Protein: 5, Sodium: 10}, 3)
	totals.Add(&FoodItem{Calories: 50, Fiber: 2}, 1)

	assert.Equal(t, Totals{Calories: 350, Protein: 15, Fiber: 2, Sodium: 30}, totals)
}

func TestResults(t *testing.T) {
	meals := []MealTime{MealLunch, MealDinner}

	errResult := ErrorResult("bad", meals)
	assert.Equal(t, StatusError, errResult.Status)
	assert.False(t, errResult.IsOptimal())
	assert.NotNil(t, errResult.ItemsSelected)
	assert.Contains(t, errResult.String(), "bad")

	nonOpt := NonOptimalResult(StatusTimedOut, meals)
	assert.Equal(t, RelaxConstraintsMessage, nonOpt.Message)
	assert.Equal(t, "lunch, dinner", JoinMeals(meals))

	plan := &PlanResult{Status: StatusOptimal, ItemsSelected: []PlannedItem{
		{FoodItem: FoodItem{Name: "Pear", Category: "Fresh Fruit"}, Servings: 2},
		{FoodItem: FoodItem{Name: "Rice", Category: "Grains"}, Servings: 1},
	}}
	assert.Equal(t, 2, plan.FruitServings())
}
