// Package catalog holds the immutable menu a planner works against.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"platewise/internal/models"
)

// ErrEmptyCatalog is returned when planning is attempted without a loaded catalog
var ErrEmptyCatalog = errors.New("catalog: no catalog loaded")

// Catalog is a read-only sequence of food items. It is never mutated after
// New returns, so it can be shared between concurrent planning calls.
type Catalog struct {
	items    []models.FoodItem
	source   string
	loadedAt time.Time
}

// New validates and normalizes items and wraps a private copy of them
func New(items []models.FoodItem, source string) (*Catalog, error) {
	own := make([]models.FoodItem, len(items))
	for i := range items {
		own[i] = items[i]
		own[i].DietaryTags = append([]string{}, items[i].DietaryTags...)
		own[i].Normalize()
		if err := models.ValidateFoodItem(&own[i]); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return &Catalog{items: own, source: source, loadedAt: time.Now()}, nil
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item returns a pointer to item i. Callers must not modify it.
func (c *Catalog) Item(i int) *models.FoodItem {
	return &c.items[i]
}

// Items returns a copy of every item
func (c *Catalog) Items() []models.FoodItem {
	out := make([]models.FoodItem, len(c.items))
	copy(out, c.items)
	return out
}

// Source describes where the catalog was loaded from
func (c *Catalog) Source() string {
	return c.source
}

// LoadedAt returns when the catalog was built
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// WithTag returns a catalog holding only the items that carry a dietary tag
func (c *Catalog) WithTag(tag string) *Catalog {
	out := &Catalog{source: c.source, loadedAt: c.loadedAt}
	for i := range c.items {
		if c.items[i].HasTag(tag) {
			out.items = append(out.items, c.items[i])
		}
	}
	return out
}

// ByMeal groups items by plannable meal. Items with an unknown meal time are left out.
func (c *Catalog) ByMeal() map[models.MealTime][]models.FoodItem {
	groups := make(map[models.MealTime][]models.FoodItem, len(models.PlannableMeals))
	for _, m := range models.PlannableMeals {
		groups[m] = []models.FoodItem{}
	}
	for _, item := range c.items {
		if _, ok := groups[item.MealTime]; ok {
			groups[item.MealTime] = append(groups[item.MealTime], item)
		}
	}
	return groups
}

// Stats summarizes a catalog
type Stats struct {
	TotalItems  int                     `json:"total_items"`
	PerMeal     map[models.MealTime]int `json:"per_meal"`
	FruitItems  int                     `json:"fruit_items"`
	AvgCalories float64                 `json:"avg_calories"`
	AvgProtein  float64                 `json:"avg_protein"`
}

// Stats computes item counts and nutrient averages
func (c *Catalog) Stats() Stats {
	s := Stats{TotalItems: len(c.items), PerMeal: make(map[models.MealTime]int)}
	var calories, protein float64
	for i := range c.items {
		item := &c.items[i]
		s.PerMeal[item.MealTime]++
		if item.IsFruit() {
			s.FruitItems++
		}
		calories += item.Calories
		protein += item.Protein
	}
	if len(c.items) > 0 {
		s.AvgCalories = calories / float64(len(c.items))
		s.AvgProtein = protein / float64(len(c.items))
	}
	return s
}
