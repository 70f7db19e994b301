package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"platewise/internal/api"
	"platewise/internal/evaluation"
	"platewise/internal/models"
)

var planFlags struct {
	menu       string
	calories   float64
	protein    float64
	meals      []string
	minFruits  int
	maxFruits  int
	calTol     float64
	proteinTol float64
	diversity  float64
	servings   int
	exclude    []string
	num        int
	format     string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print one or more meal plans as JSON",
	Example: `  platewise plan --meals lunch,dinner --calories 1800
  platewise plan --num 3 --exclude "Fried Rice"`,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.menu, "menu", "", "menu file to plan from (overrides config)")
	f.Float64Var(&planFlags.calories, "calories", 0, "target calories")
	f.Float64Var(&planFlags.protein, "protein", 0, "target protein in grams")
	f.StringSliceVar(&planFlags.meals, "meals", nil, "meals to plan (breakfast, lunch, dinner)")
	f.IntVar(&planFlags.minFruits, "min-fruits", 0, "minimum fruit servings")
	f.IntVar(&planFlags.maxFruits, "max-fruits", 0, "maximum fruit servings")
	f.Float64Var(&planFlags.calTol, "calorie-tolerance", 0, "allowed calorie deviation")
	f.Float64Var(&planFlags.proteinTol, "protein-tolerance", 0, "allowed protein deviation")
	f.Float64Var(&planFlags.diversity, "diversity", 0, "per-item penalty in the objective")
	f.IntVar(&planFlags.servings, "max-servings", 0, "maximum servings of any one item")
	f.StringSliceVar(&planFlags.exclude, "exclude", nil, "item names to leave out")
	f.IntVar(&planFlags.num, "num", 1, "number of alternative plans")
	f.StringVar(&planFlags.format, "format", "json", "output format (json or text)")
}

// planRequest applies the flags the user set over the configured defaults
func planRequest(cmd *cobra.Command) models.PlanRequest {
	req := cfg.Planner.DefaultRequest()
	f := cmd.Flags()
	if f.Changed("calories") {
		req.TargetCalories = planFlags.calories
	}
	if f.Changed("protein") {
		req.TargetProtein = planFlags.protein
	}
	if f.Changed("meals") {
		req.SelectedMeals = planFlags.meals
	}
	if f.Changed("min-fruits") {
		req.MinFruits = planFlags.minFruits
	}
	if f.Changed("max-fruits") {
		req.MaxFruits = planFlags.maxFruits
	}
	if f.Changed("calorie-tolerance") {
		req.CalorieTolerance = planFlags.calTol
	}
	if f.Changed("protein-tolerance") {
		req.ProteinTolerance = planFlags.proteinTol
	}
	if f.Changed("diversity") {
		req.DiversityWeight = planFlags.diversity
	}
	if f.Changed("max-servings") {
		req.MaxServingsPerItem = planFlags.servings
	}
	req.ExcludeItems = planFlags.exclude
	return req
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planFlags.num < 1 || planFlags.num > cfg.Planner.MaxPlans {
		return fmt.Errorf("--num must be between 1 and %d", cfg.Planner.MaxPlans)
	}
	if planFlags.format != "json" && planFlags.format != "text" {
		return fmt.Errorf("unknown format %q", planFlags.format)
	}
	if planFlags.menu != "" {
		cfg.Catalog.MenuPath = planFlags.menu
		cfg.Catalog.Source = "file"
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	opt := newOptimizer(cfg, nil)
	req := planRequest(cmd)

	var plans []*models.PlanResult
	if planFlags.num == 1 {
		plan, err := opt.OptimizePlan(cmd.Context(), cat, req)
		if err != nil {
			return err
		}
		plans = []*models.PlanResult{plan}
	} else {
		plans, err = opt.GeneratePlans(cmd.Context(), cat, req, planFlags.num)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if planFlags.format == "text" {
		return writeText(out, plans, req)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if planFlags.num == 1 {
		return enc.Encode(plans[0])
	}
	return enc.Encode(api.PlanResponse{Status: "success", Count: len(plans), Plans: plans})
}

func writeText(w io.Writer, plans []*models.PlanResult, req models.PlanRequest) error {
	if len(plans) == 0 {
		_, err := fmt.Fprintln(w, "No plans found. Try relaxing constraints.")
		return err
	}
	for i, plan := range plans {
		n := 0
		if len(plans) > 1 {
			n = i + 1
		}
		if err := evaluation.WriteReport(w, plan, n); err != nil {
			return err
		}
		if plan.IsOptimal() {
			s := evaluation.Evaluate(plan, req)
			fmt.Fprintf(w, "  Accuracy: calories %.0f%% | protein %.0f%%\n", s.CalorieAccuracy*100, s.ProteinAccuracy*100)
		}
	}
	if len(plans) > 1 {
		fmt.Fprintf(w, "\nAverage overlap between plans: %.0f%%\n", evaluation.AverageOverlap(plans)*100)
	}
	return nil
}
