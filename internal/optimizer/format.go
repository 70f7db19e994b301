package optimizer

import (
	"math"

	"platewise/internal/models"
)

// inclusionThreshold drops solver noise: a variable counts as selected only
// when its rounded value exceeds it.
const inclusionThreshold = 0.01

// formatResult turns solved variable values into a plan. Items are copied
// before being annotated with servings; the catalog is never touched.
func formatResult(f *formulation, values []float64) *models.PlanResult {
	result := &models.PlanResult{
		Status:        models.StatusOptimal,
		Meals:         make(map[models.MealTime][]models.PlannedItem, len(models.PlannableMeals)),
		ItemsSelected: []models.PlannedItem{},
		SelectedMeals: f.meals,
	}
	for _, m := range models.PlannableMeals {
		result.Meals[m] = []models.PlannedItem{}
	}

	for i, item := range f.items {
		servings := math.Round(values[i])
		if servings <= inclusionThreshold {
			continue
		}
		planned := models.PlannedItem{FoodItem: copyItem(item), Servings: int(servings)}
		result.ItemsSelected = append(result.ItemsSelected, planned)
		result.Totals.Add(&planned.FoodItem, planned.Servings)

		if _, ok := result.Meals[item.MealTime]; ok {
			result.Meals[item.MealTime] = append(result.Meals[item.MealTime], planned)
		}
	}

	result.NumItems = len(result.ItemsSelected)
	return result
}

func copyItem(item *models.FoodItem) models.FoodItem {
	c := *item
	c.DietaryTags = make([]string, len(item.DietaryTags))
	copy(c.DietaryTags, item.DietaryTags)
	return c
}
