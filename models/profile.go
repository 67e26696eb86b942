package models

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

const (
	ActivitySedentary        = "sedentary"
	ActivityLightlyActive    = "lightly_active"
	ActivityModeratelyActive = "moderately_active"
	ActivityVeryActive       = "very_active"
	ActivityExtremelyActive  = "extremely_active"
)

const (
	GoalWeightLoss     = "weight_loss"
	GoalWeightGain     = "weight_gain"
	GoalMaintainWeight = "maintain_weight"
)

// UserProfile is consumed by the macro calculator. Every field is required
// together: the calculator refuses to produce output from a partial profile.
type UserProfile struct {
	Age           int     `json:"age"`
	WeightKg      float64 `json:"weight"`
	HeightCm      float64 `json:"height"`
	Gender        string  `json:"gender"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
}

// Complete reports whether every field the calculator needs is present.
func (p UserProfile) Complete() bool {
	return p.Age > 0 && p.WeightKg > 0 && p.HeightCm > 0 &&
		p.Gender != "" && p.ActivityLevel != "" && p.Goal != ""
}

// MacroTargets is the calculator's daily recommendation for a profile.
type MacroTargets struct {
	Calories       float64 `json:"calories"`
	ProteinGrams   float64 `json:"protein"`
	FatGrams       float64 `json:"fat"`
	CarbsGrams     float64 `json:"carbs"`
	ProteinPercent float64 `json:"protein_percent"`
	FatPercent     float64 `json:"fat_percent"`
	CarbsPercent   float64 `json:"carbs_percent"`
}
