package nutrition

import (
	"math"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

// Activity level multipliers for TDEE.
var activityMultipliers = map[string]float64{
	models.ActivitySedentary:        1.2,
	models.ActivityLightlyActive:    1.375,
	models.ActivityModeratelyActive: 1.55,
	models.ActivityVeryActive:       1.725,
	models.ActivityExtremelyActive:  1.9,
}

// Goal-based daily calorie adjustments (~0.5 kg per week either way).
var goalAdjustments = map[string]float64{
	models.GoalWeightLoss:     -500,
	models.GoalWeightGain:     +500,
	models.GoalMaintainWeight: 0,
}

// BMR computes the Mifflin-St Jeor basal metabolic rate:
//
//	men:   10*weight + 6.25*height - 5*age + 5
//	women: 10*weight + 6.25*height - 5*age - 161
//
// ok is false when any required field is missing or the gender is not a
// recognized value. All calculator functions are pure and total on complete
// profiles, and refuse partial input rather than producing partial results.
func BMR(p models.UserProfile) (float64, bool) {
	if p.Age <= 0 || p.WeightKg <= 0 || p.HeightCm <= 0 {
		return 0, false
	}

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch p.Gender {
	case models.GenderMale:
		bmr += 5
	case models.GenderFemale:
		bmr -= 161
	default:
		return 0, false
	}
	return bmr, true
}

// TDEE scales BMR by the profile's activity multiplier.
func TDEE(p models.UserProfile) (float64, bool) {
	bmr, ok := BMR(p)
	if !ok {
		return 0, false
	}
	multiplier, ok := activityMultipliers[p.ActivityLevel]
	if !ok {
		return 0, false
	}
	return bmr * multiplier, true
}

// TargetCalories applies the goal adjustment to TDEE, floored at 1200 kcal
// for women and 1500 for men. The value stays unrounded, like BMR and TDEE.
func TargetCalories(p models.UserProfile) (float64, bool) {
	tdee, ok := TDEE(p)
	if !ok {
		return 0, false
	}
	adjustment, ok := goalAdjustments[p.Goal]
	if !ok {
		return 0, false
	}

	target := tdee + adjustment
	floor := 1500.0
	if p.Gender == models.GenderFemale {
		floor = 1200.0
	}
	return math.Max(target, floor), true
}

// Macros splits target calories into a goal-dependent protein allowance
// (g/kg body weight), 25% of calories as fat, and carbs as the remainder.
func Macros(p models.UserProfile) (models.MacroTargets, bool) {
	target, ok := TargetCalories(p)
	if !ok {
		return models.MacroTargets{}, false
	}

	proteinPerKg := 1.8
	switch p.Goal {
	case models.GoalWeightGain:
		proteinPerKg = 2.2
	case models.GoalWeightLoss:
		proteinPerKg = 2.0
	}

	proteinGrams := round1(p.WeightKg * proteinPerKg)
	proteinCalories := proteinGrams * 4

	fatCalories := target * 0.25
	fatGrams := round1(fatCalories / 9)

	carbsCalories := target - proteinCalories - fatCalories
	carbsGrams := round1(carbsCalories / 4)

	return models.MacroTargets{
		Calories:       target,
		ProteinGrams:   proteinGrams,
		FatGrams:       fatGrams,
		CarbsGrams:     carbsGrams,
		ProteinPercent: round1(proteinCalories / target * 100),
		FatPercent:     round1(fatCalories / target * 100),
		CarbsPercent:   round1(carbsCalories / target * 100),
	}, true
}
