// Package formula holds the pure calculations behind the bot: the insulin
// sensitivity factor, the injection timing decay, the meal carbohydrate
// coefficient and the daily energy requirement.
package formula

import (
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
)

// SensitivityFactor is 100 divided by the mean of three daily insulin totals.
func SensitivityFactor(day1, day2, day3 float64) (float64, error) {
	mean := (day1 + day2 + day3) / 3
	if mean == 0 {
		return 0, apperrors.ErrDivisionByZero
	}
	return 100 / mean, nil
}

// InjectionDecay is the share of a supplemental dose still counted for a
// meal when it was injected minutes after the meal.
func InjectionDecay(minutes int) float64 {
	switch {
	case minutes <= 60:
		return 0.85
	case minutes <= 120:
		return 0.60
	case minutes <= 180:
		return 0.25
	default:
		return 0
	}
}

// CorrectedDose applies InjectionDecay to a raw dose.
func CorrectedDose(dose float64, minutes int) float64 {
	return dose * InjectionDecay(minutes)
}

// MealInput is everything a meal coefficient is computed from.
type MealInput struct {
	GlucoseStart        float64
	GlucoseEnd          float64
	Factor              float64
	FoodInsulin         float64
	SupplementalInsulin float64 // already decay-corrected
	CarbsPrimary        float64
	CarbsSecondary      float64
	Protein             *float64
	Fat                 *float64
}

// EffectiveCarbs counts protein at 10% and fat at 5% of their weight.
func EffectiveCarbs(in MealInput) float64 {
	carbs := in.CarbsPrimary + in.CarbsSecondary
	if in.Protein != nil {
		carbs += 0.1 * *in.Protein
	}
	if in.Fat != nil {
		carbs += 0.05 * *in.Fat
	}
	return carbs
}

// MealCoefficient returns insulin units per gram of effective carbohydrate
// after accounting for the glucose drift over the meal. It is 0 when there
// are no effective carbohydrates.
func MealCoefficient(in MealInput) (float64, error) {
	carbs := EffectiveCarbs(in)
	if carbs <= 0 {
		return 0, nil
	}
	if in.Factor == 0 {
		return 0, apperrors.ErrDivisionByZero
	}
	drift := (in.GlucoseEnd - in.GlucoseStart) / in.Factor
	return (drift + in.FoodInsulin + in.SupplementalInsulin) / carbs, nil
}
