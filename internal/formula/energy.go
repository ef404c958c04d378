package formula

// Gender selects the coefficient set of the energy equations.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ActivityLevel is the physical activity category, 0 (sedentary) to 3 (very active).
type ActivityLevel int

const (
	ActivitySedentary ActivityLevel = iota
	ActivityLow
	ActivityActive
	ActivityVeryActive
)

var activityCoefficients = map[Gender][4]float64{
	Male:   {1.00, 1.13, 1.26, 1.42},
	Female: {1.00, 1.16, 1.31, 1.56},
}

// ActivityCoefficient returns the physical activity multiplier; unknown
// combinations fall back to 1.
func ActivityCoefficient(g Gender, level ActivityLevel) float64 {
	coefs, ok := activityCoefficients[g]
	if !ok || level < ActivitySedentary || level > ActivityVeryActive {
		return 1
	}
	return coefs[level]
}

// GrowthExpense is the daily energy spent on growth, kcal. Infants under a
// year are graded by months.
func GrowthExpense(ageYears, ageMonths int) float64 {
	switch {
	case ageYears == 0 && ageMonths <= 3:
		return 175
	case ageYears == 0 && ageMonths <= 6:
		return 56
	case ageYears == 0:
		return 22
	case ageYears <= 8:
		return 20
	default:
		return 25
	}
}

// EnergyInput describes a child for the estimated energy requirement.
type EnergyInput struct {
	Gender    Gender
	AgeYears  int
	AgeMonths int
	WeightKg  float64
	HeightCm  float64
	Activity  ActivityLevel
}

// EnergyRequirement returns the estimated daily energy requirement, kcal.
func EnergyRequirement(in EnergyInput) float64 {
	growth := GrowthExpense(in.AgeYears, in.AgeMonths)
	if in.AgeYears < 3 {
		return 89*in.WeightKg - 100 + growth
	}

	age := float64(in.AgeYears)
	heightM := in.HeightCm / 100
	pa := ActivityCoefficient(in.Gender, in.Activity)
	if in.Gender == Female {
		return 135.3 - 30.8*age + pa*(10*in.WeightKg+934*heightM) + growth
	}
	return 88.5 - 61.9*age + pa*(26.7*in.WeightKg+903*heightM) + growth
}
