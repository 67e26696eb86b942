package nutrition

import (
	"fmt"
	"math"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// AutoIndex selects the single canonical portion without an explicit user
// choice. Valid only when AutoSelectable reports true.
const AutoIndex = -1

// AutoSelectable reports whether an analysis carries exactly one portion
// option flagged exact, in which case the caller may skip the choice menu.
func AutoSelectable(a models.FoodAnalysis) bool {
	return len(a.PortionOptions) == 1 && a.PortionOptions[0].Size == models.PortionSizeExact
}

// Resolve computes total nutrition for the portion at index. Pure arithmetic,
// no side effects: the same inputs always yield the same resolved totals.
func Resolve(a models.FoodAnalysis, index int) (models.ResolvedNutrition, models.PortionOption, error) {
	if index == AutoIndex {
		if !AutoSelectable(a) {
			return models.ResolvedNutrition{}, models.PortionOption{},
				fmt.Errorf("auto-select needs a single exact portion: %w", models.ErrInvalidSelection)
		}
		index = 0
	}
	if index < 0 || index >= len(a.PortionOptions) {
		return models.ResolvedNutrition{}, models.PortionOption{},
			fmt.Errorf("index %d of %d options: %w", index, len(a.PortionOptions), models.ErrInvalidSelection)
	}

	option := a.PortionOptions[index]
	return ForPortion(a.NutritionPer100g, option.WeightGrams), option, nil
}

// ForPortion scales per-100g rates to a concrete weight, rounding each total
// to 0.1.
func ForPortion(n models.NutritionPer100g, weightGrams float64) models.ResolvedNutrition {
	multiplier := weightGrams / 100.0
	return models.ResolvedNutrition{
		TotalCalories: round1(n.Calories * multiplier),
		TotalProtein:  round1(n.Protein * multiplier),
		TotalFat:      round1(n.Fat * multiplier),
		TotalCarbs:    round1(n.Carbs * multiplier),
		PortionWeight: weightGrams,
	}
}

// PortionNutrition pairs an option with its computed totals, used for the
// portion choice menu payload.
type PortionNutrition struct {
	Option    models.PortionOption     `json:"option"`
	Nutrition models.ResolvedNutrition `json:"nutrition"`
}

// PortionsWithNutrition computes totals per option, preserving order.
func PortionsWithNutrition(a models.FoodAnalysis) []PortionNutrition {
	out := make([]PortionNutrition, 0, len(a.PortionOptions))
	for _, option := range a.PortionOptions {
		out = append(out, PortionNutrition{
			Option:    option,
			Nutrition: ForPortion(a.NutritionPer100g, option.WeightGrams),
		})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
