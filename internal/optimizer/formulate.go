package optimizer

import (
	"fmt"

	"platewise/internal/catalog"
	"platewise/internal/models"
	"platewise/internal/solver"
)

const (
	// breakfast may carry half the per-meal share when other meals are planned
	breakfastShare = 0.5
	mealShare      = 0.8
)

// ValidationError is an expected input condition that ends a planning call
// before any solve. It is reported as an Error result, never raised.
type ValidationError struct {
	Message string
	Meals   []models.MealTime
}

func (e *ValidationError) Error() string {
	return e.Message
}

// formulation is a decision model plus the catalog items behind its variables.
// items[i] backs model variable i.
type formulation struct {
	model *solver.Model
	items []*models.FoodItem
	meals []models.MealTime
}

// formulate translates a planning request into an integer program over the
// eligible catalog items.
func formulate(cat *catalog.Catalog, req models.PlanRequest) (*formulation, error) {
	meals := req.Meals()
	if len(meals) == 0 {
		return nil, &ValidationError{
			Message: "No valid meals selected. Choose from: breakfast, lunch, dinner",
		}
	}

	selected := make(map[models.MealTime]bool, len(meals))
	for _, m := range meals {
		selected[m] = true
	}
	excluded := req.ExcludeSet()

	f := &formulation{
		model: solver.NewModel("Meal_Plan_Optimization"),
		meals: meals,
	}
	for i := 0; i < cat.Len(); i++ {
		item := cat.Item(i)
		if !selected[item.MealTime] {
			continue
		}
		if _, skip := excluded[item.Name]; skip {
			continue
		}
		v := f.model.AddVariable(fmt.Sprintf("food_%d", i), 0, req.MaxServingsPerItem)
		f.model.AddObjective(v, item.Protein-req.DiversityWeight)
		f.items = append(f.items, item)
	}

	if len(f.items) == 0 {
		return nil, &ValidationError{
			Message: fmt.Sprintf("No foods available for selected meals: %s", models.JoinMeals(meals)),
			Meals:   meals,
		}
	}

	calories := f.terms(func(item *models.FoodItem) float64 { return item.Calories }, nil)
	f.model.AddConstraint("Min_Calories", calories, solver.GreaterEq, req.TargetCalories-req.CalorieTolerance)
	f.model.AddConstraint("Max_Calories", calories, solver.LessEq, req.TargetCalories+req.CalorieTolerance)

	protein := f.terms(func(item *models.FoodItem) float64 { return item.Protein }, nil)
	f.model.AddConstraint("Min_Protein", protein, solver.GreaterEq, req.TargetProtein-req.ProteinTolerance)
	f.model.AddConstraint("Max_Protein", protein, solver.LessEq, req.TargetProtein+req.ProteinTolerance)

	perMeal := req.TargetCalories / float64(len(meals))
	for _, meal := range meals {
		meal := meal
		inMeal := func(item *models.FoodItem) bool { return item.MealTime == meal }
		// A meal without eligible items gets no floor.
		if !f.hasAny(inMeal) {
			continue
		}
		share := mealShare
		if meal == models.MealBreakfast && len(meals) > 1 {
			share = breakfastShare
		}
		mealCalories := f.terms(func(item *models.FoodItem) float64 { return item.Calories }, inMeal)
		f.model.AddConstraint(fmt.Sprintf("Min_%s_calories", meal), mealCalories, solver.GreaterEq, perMeal*share)
	}

	isFruit := func(item *models.FoodItem) bool { return item.IsFruit() }
	if f.hasAny(isFruit) {
		fruits := f.terms(func(*models.FoodItem) float64 { return 1 }, isFruit)
		f.model.AddConstraint("Min_Fruits", fruits, solver.GreaterEq, float64(req.MinFruits))
		f.model.AddConstraint("Max_Fruits", fruits, solver.LessEq, float64(req.MaxFruits))
	}

	return f, nil
}

// terms builds a linear expression over the variables whose items pass keep
// (all when keep is nil), weighted by coef.
func (f *formulation) terms(coef func(*models.FoodItem) float64, keep func(*models.FoodItem) bool) []solver.Term {
	terms := make([]solver.Term, 0, len(f.items))
	for i, item := range f.items {
		if keep != nil && !keep(item) {
			continue
		}
		terms = append(terms, solver.Term{Var: i, Coef: coef(item)})
	}
	return terms
}

func (f *formulation) hasAny(pred func(*models.FoodItem) bool) bool {
	for _, item := range f.items {
		if pred(item) {
			return true
		}
	}
	return false
}
