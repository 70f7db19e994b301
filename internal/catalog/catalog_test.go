package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platewise/internal/models"
)

const sampleMenu = `{
  "date": "2025-01-15",
  "total_items": 4,
  "foods": [
    {"name": "Oatmeal", "meal_time": "breakfast", "category": "Cereal", "calories": 150, "protein": 5},
    {"name": "Banana", "meal_time": "Breakfast", "category": "Fresh Fruit", "calories": 105, "protein": 1.3},
    {"name": "Chicken Bowl", "meal_time": "lunch", "calories": 550, "protein": 42, "dietary_tags": ["halal"]},
    {"name": "Late Snack", "meal_time": "late night"}
  ]
}`

func TestDecode(t *testing.T) {
	cat, err := Decode(strings.NewReader(sampleMenu), "sample")
	require.NoError(t, err)

	require.Equal(t, 4, cat.Len())
	assert.Equal(t, "sample", cat.Source())
	assert.False(t, cat.LoadedAt().IsZero())

	banana := cat.Item(1)
	assert.Equal(t, models.MealBreakfast, banana.MealTime)
	assert.True(t, banana.IsFruit())
	assert.Equal(t, []string{}, banana.DietaryTags)

	snack := cat.Item(3)
	assert.Equal(t, models.MealUnknown, snack.MealTime)
	assert.Equal(t, 0.0, snack.Calories)
	assert.True(t, cat.Item(2).HasTag("halal"))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"foods": [`), "broken")
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"foods": [{"meal_time": "lunch"}]}`), "nameless")
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"foods": [{"name": "Bad", "calories": -5}]}`), "negative")
	assert.Error(t, err)
}

func TestNew_CopiesItems(t *testing.T) {
	items := []models.FoodItem{{Name: "Toast", MealTime: models.MealBreakfast, DietaryTags: []string{"vegan"}}}
	cat, err := New(items, "test")
	require.NoError(t, err)

	items[0].Name = "Changed"
	items[0].DietaryTags[0] = "changed"
	assert.Equal(t, "Toast", cat.Item(0).Name)
	assert.Equal(t, "vegan", cat.Item(0).DietaryTags[0])

	out := cat.Items()
	out[0].Name = "Again"
	assert.Equal(t, "Toast", cat.Item(0).Name)
}

func TestWithTag(t *testing.T) {
	cat, err := Decode(strings.NewReader(sampleMenu), "sample")
	require.NoError(t, err)

	halal := cat.WithTag("halal")
	require.Equal(t, 1, halal.Len())
	assert.Equal(t, "Chicken Bowl", halal.Item(0).Name)
	assert.Equal(t, "sample", halal.Source())
	assert.Equal(t, 4, cat.Len())

	assert.Equal(t, 0, cat.WithTag("kosher").Len())
}

func TestByMeal(t *testing.T) {
	cat, err := Decode(strings.NewReader(sampleMenu), "sample")
	require.NoError(t, err)

	groups := cat.ByMeal()
	assert.Len(t, groups, 3)
	assert.Len(t, groups[models.MealBreakfast], 2)
	assert.Len(t, groups[models.MealLunch], 1)
	assert.NotNil(t, groups[models.MealDinner])
	assert.Empty(t, groups[models.MealDinner])
}

func TestStats(t *testing.T) {
	cat, err := Decode(strings.NewReader(sampleMenu), "sample")
	require.NoError(t, err)

	s := cat.Stats()
	assert.Equal(t, 4, s.TotalItems)
	assert.Equal(t, 2, s.PerMeal[models.MealBreakfast])
	assert.Equal(t, 1, s.PerMeal[models.MealUnknown])
	assert.Equal(t, 1, s.FruitItems)
	assert.InDelta(t, 201.25, s.AvgCalories, 1e-9)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.json")
	items := []models.FoodItem{
		{Name: "Eggs", MealTime: models.MealBreakfast, Calories: 140, Protein: 12},
		{Name: "Pear", MealTime: models.MealDinner, Category: "Fruit", Calories: 90},
	}
	require.NoError(t, WriteFile(path, items))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, path, cat.Source())
	assert.Equal(t, "Pear", cat.Item(1).Name)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Get())

	first, err := New([]models.FoodItem{{Name: "A"}}, "first")
	require.NoError(t, err)
	second, err := New([]models.FoodItem{{Name: "B"}}, "second")
	require.NoError(t, err)

	assert.Nil(t, h.Swap(first))
	assert.Same(t, first, h.Get())
	assert.Same(t, first, h.Swap(second))
	assert.Same(t, second, h.Get())
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleMenu), 0644))

	initial, err := LoadFile(path)
	require.NoError(t, err)
	h := NewHolder(initial)

	w, err := NewWatcher(path, h, 0, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	require.NoError(t, WriteFile(path, []models.FoodItem{{Name: "Only", MealTime: models.MealLunch}}))
	w.Reload()
	require.Equal(t, 1, h.Get().Len())
	assert.Equal(t, "Only", h.Get().Item(0).Name)

	// A broken file leaves the last good catalog in place
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	w.Reload()
	assert.Equal(t, 1, h.Get().Len())
}
