package models

// AnalysisType describes how confident the classifier is about the portion
// information carried by a user message.
type AnalysisType string

const (
	AnalysisExact             AnalysisType = "exact"
	AnalysisApproximate       AnalysisType = "approximate"
	AnalysisNeedClarification AnalysisType = "need_clarification"
	AnalysisNotFood           AnalysisType = "not_food"
)

// ClassificationResult is produced fresh for every user message and never
// persisted.
type ClassificationResult struct {
	IsFoodRelated   bool         `json:"is_food_related"`
	Type            AnalysisType `json:"analysis_type"`
	FoodDescription string       `json:"food_description"`
	PortionHint     string       `json:"portion_info,omitempty"`
	Confidence      float64      `json:"confidence"`
	OriginalInput   string       `json:"original_input"`
}

// NutritionPer100g holds macro density for 100 grams of a food.
// Valid values: calories in [0,900], macro grams in [0,100].
type NutritionPer100g struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

const PortionSizeExact = "exact"

// PortionOption is one candidate serving. WeightGrams is always within
// [50,1000] after normalization.
type PortionOption struct {
	Size        string  `json:"size"`
	WeightGrams float64 `json:"weight"`
	Description string  `json:"description"`
}

// FoodAnalysis is the normalized output of one oracle analysis round trip.
// When IsFood is false the rest of the fields are the not-food sentinel:
// empty name, empty portion list, zeroed nutrition.
type FoodAnalysis struct {
	IsFood           bool             `json:"is_food"`
	FoodName         string           `json:"food_name"`
	Description      string           `json:"description"`
	NutritionPer100g NutritionPer100g `json:"nutrition_per_100g"`
	PortionOptions   []PortionOption  `json:"portion_options"`
}

// ResolvedNutrition is the computed total for one chosen portion weight.
// Each total is per-100g rate * weight/100 rounded to 0.1 and is never
// mutated independently of the analysis it came from.
type ResolvedNutrition struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalFat      float64 `json:"total_fat"`
	TotalCarbs    float64 `json:"total_carbs"`
	PortionWeight float64 `json:"portion_weight"`
}

// Provenance records where a finalized entry came from.
type Provenance struct {
	Method        string `json:"input_method"` // "text", "photo" or "voice"
	OriginalInput string `json:"original_input"`
}
