package nutrition

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// Bounds enforced on every normalized analysis.
const (
	MaxCaloriesPer100g = 900.0
	MaxMacroPer100g    = 100.0
	MinPortionWeight   = 50.0
	MaxPortionWeight   = 1000.0
)

// Generic placeholder names the oracle falls back to when it could not
// actually identify a dish. Accepting them would record garbage nutrition.
var placeholderNames = map[string]struct{}{
	"неизвестное блюдо":    {},
	"неопределенное блюдо": {},
	"unknown dish":         {},
	"unknown food":         {},
	"еда":                  {},
}

// ExtractJSON locates the single JSON object expected inside oracle text by
// taking the span between the first '{' and the last '}'. Anything else is
// malformed output.
func ExtractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in oracle text: %w", models.ErrMalformedOutput)
	}
	return content[start : end+1], nil
}

type oracleNutrition struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Fat      *float64 `json:"fat"`
	Carbs    *float64 `json:"carbs"`
}

type oraclePortion struct {
	Size        string   `json:"size"`
	Weight      *float64 `json:"weight"`
	Description string   `json:"description"`
}

type oracleAnalysis struct {
	IsFood      *bool            `json:"is_food"`
	FoodName    string           `json:"food_name"`
	Description string           `json:"description"`
	Nutrition   *oracleNutrition `json:"nutrition_per_100g"`
	Portions    []oraclePortion  `json:"portion_options"`
}

// Normalize parses raw oracle text into a validated FoodAnalysis.
//
// A deliberate "not food" verdict from the oracle is not an error: it returns
// the not-food sentinel. Structural problems return ErrMalformedOutput (the
// caller retries once with a stricter prompt); invariant violations return a
// ValidationError and are never retried.
func Normalize(raw string) (models.FoodAnalysis, error) {
	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		return models.FoodAnalysis{}, err
	}

	var payload oracleAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return models.FoodAnalysis{}, fmt.Errorf("undecodable oracle JSON: %w", models.ErrMalformedOutput)
	}

	// A missing is_food key counts as a not-food verdict: an answer that
	// cannot commit to food is not trusted with nutrition values.
	if payload.IsFood == nil || !*payload.IsFood {
		return notFoodSentinel(payload.Description), nil
	}

	if payload.Nutrition == nil {
		return models.FoodAnalysis{}, fmt.Errorf("missing nutrition_per_100g: %w", models.ErrMalformedOutput)
	}

	analysis := models.FoodAnalysis{
		IsFood:      true,
		FoodName:    strings.TrimSpace(payload.FoodName),
		Description: strings.TrimSpace(payload.Description),
		NutritionPer100g: models.NutritionPer100g{
			Calories: clamp(deref(payload.Nutrition.Calories), 0, MaxCaloriesPer100g),
			Protein:  clamp(deref(payload.Nutrition.Protein), 0, MaxMacroPer100g),
			Fat:      clamp(deref(payload.Nutrition.Fat), 0, MaxMacroPer100g),
			Carbs:    clamp(deref(payload.Nutrition.Carbs), 0, MaxMacroPer100g),
		},
	}

	// Entries without both size and weight are dropped silently.
	for _, p := range payload.Portions {
		if p.Size == "" || p.Weight == nil {
			continue
		}
		desc := p.Description
		if desc == "" {
			desc = p.Size + " порция"
		}
		analysis.PortionOptions = append(analysis.PortionOptions, models.PortionOption{
			Size:        p.Size,
			WeightGrams: clamp(*p.Weight, MinPortionWeight, MaxPortionWeight),
			Description: desc,
		})
	}

	// The menu is always presented lightest-first regardless of how the
	// oracle ordered its answer. Stable, so equal weights keep prompt order.
	sort.SliceStable(analysis.PortionOptions, func(i, j int) bool {
		return analysis.PortionOptions[i].WeightGrams < analysis.PortionOptions[j].WeightGrams
	})

	if name := strings.ToLower(analysis.FoodName); name == "" {
		return models.FoodAnalysis{}, &models.ValidationError{Reason: "empty food name"}
	} else if _, generic := placeholderNames[name]; generic {
		return models.FoodAnalysis{}, &models.ValidationError{Reason: "placeholder food name: " + analysis.FoodName}
	}

	n := analysis.NutritionPer100g
	if n.Calories == 0 && n.Protein == 0 && n.Fat == 0 && n.Carbs == 0 {
		return models.FoodAnalysis{}, &models.ValidationError{Reason: "all nutrition values are zero"}
	}

	// No fabricated default portions: an analysis with nothing usable left
	// is rejected so the caller re-prompts instead of guessing a weight.
	if len(analysis.PortionOptions) == 0 {
		return models.FoodAnalysis{}, &models.ValidationError{Reason: "no usable portion options"}
	}

	return analysis, nil
}

func notFoodSentinel(description string) models.FoodAnalysis {
	if description == "" {
		description = "Еда не обнаружена"
	}
	return models.FoodAnalysis{
		IsFood:      false,
		Description: description,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
