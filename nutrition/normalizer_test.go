package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

func TestExtractJSONFromProse(t *testing.T) {
	jsonStr, err := ExtractJSON(`Конечно! Вот анализ: {"food_name": "борщ"} Приятного аппетита!`)

	require.NoError(t, err)
	assert.Equal(t, `{"food_name": "борщ"}`, jsonStr)
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("извините, не могу распознать блюдо")

	assert.ErrorIs(t, err, models.ErrMalformedOutput)
}

func TestNormalizeValidAnalysis(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Гречневая каша",
		"description": "Каша из гречневой крупы",
		"nutrition_per_100g": {"calories": 110, "protein": 4.2, "fat": 1.1, "carbs": 21.3},
		"portion_options": [
			{"size": "small", "weight": 150, "description": "Маленькая порция"},
			{"size": "medium", "weight": 250, "description": "Средняя порция"},
			{"size": "large", "weight": 350, "description": "Большая порция"}
		]
	}`

	analysis, err := Normalize(raw)

	require.NoError(t, err)
	assert.True(t, analysis.IsFood)
	assert.Equal(t, "Гречневая каша", analysis.FoodName)
	assert.InDelta(t, 110, analysis.NutritionPer100g.Calories, 1e-9)
	require.Len(t, analysis.PortionOptions, 3)
	assert.InDelta(t, 250, analysis.PortionOptions[1].WeightGrams, 1e-9)
}

func TestNormalizeClampsImplausibleValues(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Сало",
		"nutrition_per_100g": {"calories": 1500, "protein": -3, "fat": 250, "carbs": 0},
		"portion_options": [{"size": "exact", "weight": 5000}]
	}`

	analysis, err := Normalize(raw)

	require.NoError(t, err)
	assert.InDelta(t, MaxCaloriesPer100g, analysis.NutritionPer100g.Calories, 1e-9)
	assert.InDelta(t, 0, analysis.NutritionPer100g.Protein, 1e-9)
	assert.InDelta(t, MaxMacroPer100g, analysis.NutritionPer100g.Fat, 1e-9)
	require.Len(t, analysis.PortionOptions, 1)
	assert.InDelta(t, MaxPortionWeight, analysis.PortionOptions[0].WeightGrams, 1e-9)
}

func TestNormalizeNotFoodVerdictIsNotAnError(t *testing.T) {
	analysis, err := Normalize(`{"is_food": false, "description": "На фото ноутбук"}`)

	require.NoError(t, err)
	assert.False(t, analysis.IsFood)
	assert.Equal(t, "На фото ноутбук", analysis.Description)
}

func TestNormalizeSortsPortionsByAscendingWeight(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Каша",
		"nutrition_per_100g": {"calories": 110, "protein": 4.2, "fat": 1.1, "carbs": 21.3},
		"portion_options": [
			{"size": "large", "weight": 350, "description": "Большая порция"},
			{"size": "small", "weight": 150, "description": "Маленькая порция"},
			{"size": "medium", "weight": 250, "description": "Средняя порция"}
		]
	}`

	analysis, err := Normalize(raw)

	require.NoError(t, err)
	require.Len(t, analysis.PortionOptions, 3)
	assert.Equal(t, "small", analysis.PortionOptions[0].Size)
	assert.Equal(t, "medium", analysis.PortionOptions[1].Size)
	assert.Equal(t, "large", analysis.PortionOptions[2].Size)
}

func TestNormalizeMissingIsFoodKeyIsNotFood(t *testing.T) {
	raw := `{
		"food_name": "Борщ",
		"description": "что-то похожее на суп",
		"nutrition_per_100g": {"calories": 49, "protein": 1.6, "fat": 2.3, "carbs": 5.5},
		"portion_options": [{"size": "medium", "weight": 350}]
	}`

	analysis, err := Normalize(raw)

	require.NoError(t, err)
	assert.False(t, analysis.IsFood, "an answer without an is_food verdict must not be trusted")
	assert.Empty(t, analysis.PortionOptions)
}

func TestNormalizeMissingNutritionIsMalformed(t *testing.T) {
	_, err := Normalize(`{"is_food": true, "food_name": "суп", "portion_options": []}`)

	assert.ErrorIs(t, err, models.ErrMalformedOutput)
}

func TestNormalizeUndecodableJSONIsMalformed(t *testing.T) {
	_, err := Normalize(`{"is_food": true, "food_name": }`)

	assert.ErrorIs(t, err, models.ErrMalformedOutput)
}

func TestNormalizePlaceholderNameRejected(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Неизвестное блюдо",
		"nutrition_per_100g": {"calories": 100, "protein": 5, "fat": 5, "carbs": 10},
		"portion_options": [{"size": "medium", "weight": 200}]
	}`

	_, err := Normalize(raw)

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.NotErrorIs(t, err, models.ErrMalformedOutput)
}

func TestNormalizeAllZeroMacrosRejected(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Вода",
		"nutrition_per_100g": {"calories": 0, "protein": 0, "fat": 0, "carbs": 0},
		"portion_options": [{"size": "exact", "weight": 250}]
	}`

	_, err := Normalize(raw)

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestNormalizeDropsPortionsWithoutWeight(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Салат",
		"nutrition_per_100g": {"calories": 80, "protein": 2, "fat": 5, "carbs": 6},
		"portion_options": [
			{"size": "small"},
			{"size": "medium", "weight": 200}
		]
	}`

	analysis, err := Normalize(raw)

	require.NoError(t, err)
	require.Len(t, analysis.PortionOptions, 1)
	assert.Equal(t, "medium", analysis.PortionOptions[0].Size)
}

func TestNormalizeNoUsablePortionsRejected(t *testing.T) {
	raw := `{
		"is_food": true,
		"food_name": "Салат",
		"nutrition_per_100g": {"calories": 80, "protein": 2, "fat": 5, "carbs": 6},
		"portion_options": [{"size": "small"}]
	}`

	_, err := Normalize(raw)

	require.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "portion")
}
