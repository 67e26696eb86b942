package models

import "time"

// FoodRecord is the finalized diary entry emitted to persistence once the
// user confirms a resolved portion.
type FoodRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FoodName        string    `json:"food_name"`
	FoodDescription string    `json:"food_description"`
	PortionSize     string    `json:"portion_size"`
	PortionWeight   float64   `json:"portion_weight"`
	CaloriesPer100g float64   `json:"calories_per_100g"`
	ProteinPer100g  float64   `json:"protein_per_100g"`
	FatPer100g      float64   `json:"fat_per_100g"`
	CarbsPer100g    float64   `json:"carbs_per_100g"`
	TotalCalories   float64   `json:"total_calories"`
	TotalProtein    float64   `json:"total_protein"`
	TotalFat        float64   `json:"total_fat"`
	TotalCarbs      float64   `json:"total_carbs"`
	InputMethod     string    `json:"input_method"`
	OriginalInput   string    `json:"original_input"`
	CreatedAt       time.Time `json:"created_at"`
}

// DailySummary aggregates a user's confirmed entries for one calendar day.
type DailySummary struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalFat      float64 `json:"total_fat"`
	TotalCarbs    float64 `json:"total_carbs"`
	EntriesCount  int     `json:"entries_count"`
}
