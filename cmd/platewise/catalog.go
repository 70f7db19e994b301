package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"platewise/internal/catalog"
	"platewise/internal/database"
	"platewise/internal/models"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the stored menu catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <menu.json>",
	Short: "Replace the database catalog with a menu file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}
		store, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ReplaceFoods(cat.Items()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items from %s\n", cat.Len(), args[0])
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <menu.json>",
	Short: "Write the database catalog to a menu file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.ListFoods()
		if err != nil {
			return err
		}
		if err := catalog.WriteFile(args[0], items); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(items), args[0])
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the configured catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		s := cat.Stats()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Source:\t%s\n", cat.Source())
		fmt.Fprintf(w, "Items:\t%d\n", s.TotalItems)
		fmt.Fprintf(w, "Fruit items:\t%d\n", s.FruitItems)
		fmt.Fprintf(w, "Avg calories:\t%.1f\n", s.AvgCalories)
		fmt.Fprintf(w, "Avg protein:\t%.1f\n", s.AvgProtein)

		meals := make([]string, 0, len(s.PerMeal))
		for m := range s.PerMeal {
			meals = append(meals, string(m))
		}
		sort.Strings(meals)
		for _, m := range meals {
			fmt.Fprintf(w, "  %s:\t%d\n", m, s.PerMeal[models.MealTime(m)])
		}
		return w.Flush()
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogExportCmd, catalogStatsCmd)
}
