package evaluation

import (
	"fmt"
	"io"
	"strings"

	"platewise/internal/models"
)

const rule = "============================================================"

// WriteReport renders plan as a readable daily menu. planNumber > 0 titles it
// as one of several alternatives.
func WriteReport(w io.Writer, plan *models.PlanResult, planNumber int) error {
	b := &strings.Builder{}

	header := "OPTIMIZED MEAL PLAN"
	if planNumber > 0 {
		header = fmt.Sprintf("MEAL PLAN #%d", planNumber)
	}
	fmt.Fprintf(b, "\n%s\n%s\n%s\n", rule, header, rule)

	if !plan.IsOptimal() {
		fmt.Fprintf(b, "\nStatus: %s\n%s\n", plan.Status, plan.Message)
		_, err := io.WriteString(w, b.String())
		return err
	}

	titles := make([]string, len(plan.SelectedMeals))
	for i, m := range plan.SelectedMeals {
		titles[i] = strings.ToUpper(string(m[:1])) + string(m[1:])
	}
	fmt.Fprintf(b, "\nMeals: %s\n", strings.Join(titles, ", "))

	selected := make(map[models.MealTime]bool, len(plan.SelectedMeals))
	for _, m := range plan.SelectedMeals {
		selected[m] = true
	}
	for _, meal := range models.PlannableMeals {
		if !selected[meal] {
			continue
		}
		fmt.Fprintf(b, "\n%s:\n%s\n", strings.ToUpper(string(meal)), strings.Repeat("-", len(rule)))

		items := plan.Meals[meal]
		if len(items) == 0 {
			b.WriteString("  No items selected\n")
			continue
		}
		var mealTotals models.Totals
		for _, item := range items {
			mealTotals.Add(&item.FoodItem, item.Servings)
			s := float64(item.Servings)
			suffix := ""
			if item.Servings > 1 {
				suffix = fmt.Sprintf(" x%d", item.Servings)
			}
			fmt.Fprintf(b, "  • %s%s\n", item.Name, suffix)
			fmt.Fprintf(b, "    %.0f cal | %.1fg protein | %.1fg carbs | %.1fg fat\n",
				item.Calories*s, item.Protein*s, item.Carbs*s, item.Fat*s)
		}
		fmt.Fprintf(b, "  Meal Total: %.0f cal | %.1fg protein\n", mealTotals.Calories, mealTotals.Protein)
	}

	t := plan.Totals
	fmt.Fprintf(b, "\n%s\nDAILY TOTALS:\n%s\n", rule, strings.Repeat("-", len(rule)))
	fmt.Fprintf(b, "  Calories: %.0f\n", t.Calories)
	fmt.Fprintf(b, "  Protein:  %.1fg\n", t.Protein)
	fmt.Fprintf(b, "  Carbs:    %.1fg\n", t.Carbs)
	fmt.Fprintf(b, "  Fat:      %.1fg\n", t.Fat)
	fmt.Fprintf(b, "  Fiber:    %.1fg\n", t.Fiber)
	fmt.Fprintf(b, "  Sodium:   %.1fmg\n", t.Sodium)
	fmt.Fprintf(b, "\n  Total Items: %d\n%s\n", plan.NumItems, rule)

	_, err := io.WriteString(w, b.String())
	return err
}
