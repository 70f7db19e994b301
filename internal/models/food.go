package models

import (
	"fmt"
	"strings"
)

// MealTime identifies the meal a food item is served at
type MealTime string

const (
	// Meal times
	MealBreakfast MealTime = "breakfast"
	MealLunch     MealTime = "lunch"
	MealDinner    MealTime = "dinner"
	MealUnknown   MealTime = "unknown"
)

// PlannableMeals lists the meals a plan can be built for, in display order
var PlannableMeals = []MealTime{MealBreakfast, MealLunch, MealDinner}

// ParseMealTime case-folds s and reports whether it names a plannable meal
func ParseMealTime(s string) (MealTime, bool) {
	m := MealTime(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MealBreakfast, MealLunch, MealDinner:
		return m, true
	}
	return MealUnknown, false
}

// FoodItem represents a single dish in the dining hall catalog.
// Missing nutrient fields decode as zero.
type FoodItem struct {
	Name        string   `json:"name"`
	MealTime    MealTime `json:"meal_time"`
	Category    string   `json:"category"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	Fiber       float64  `json:"fiber"`
	Sodium      float64  `json:"sodium"`
	ServingSize string   `json:"serving_size"`
	DietaryTags []string `json:"dietary_tags"`
	URL         string   `json:"url,omitempty"`
}

// IsFruit reports whether the item's category mentions fruit
func (f *FoodItem) IsFruit() bool {
	return strings.Contains(strings.ToLower(f.Category), "fruit")
}

// HasTag checks if the item carries a specific dietary tag
func (f *FoodItem) HasTag(tag string) bool {
	for _, t := range f.DietaryTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Normalize fills the fixed-shape defaults: meal times outside the plannable set
// collapse to unknown and a nil tag list becomes empty.
func (f *FoodItem) Normalize() {
	if m, ok := ParseMealTime(string(f.MealTime)); ok {
		f.MealTime = m
	} else {
		f.MealTime = MealUnknown
	}
	if f.DietaryTags == nil {
		f.DietaryTags = []string{}
	}
}

// ValidateFoodItem validates a catalog entry
func ValidateFoodItem(item *FoodItem) error {
	if item.Name == "" {
		return fmt.Errorf("food item name is required")
	}
	nutrients := map[string]float64{
		"calories": item.Calories,
		"protein":  item.Protein,
		"carbs":    item.Carbs,
		"fat":      item.Fat,
		"fiber":    item.Fiber,
		"sodium":   item.Sodium,
	}
	for name, v := range nutrients {
		if v < 0 {
			return fmt.Errorf("food item %q has negative %s: %v", item.Name, name, v)
		}
	}
	return nil
}
