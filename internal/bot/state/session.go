package state

import (
	"context"
	"time"

	"github.com/vladimiradmaev/diabetbot/internal/domain"
)

// Flow names the dialog a session belongs to.
type Flow string

const (
	FlowFactor     Flow = "sensitivity_factor"
	FlowCorrection Flow = "factor_correction"
	FlowEdit       Flow = "factor_edit"
	FlowMeal       Flow = "meal_coefficient"
	FlowCalories   Flow = "calories"
)

// Step is the question a session is waiting an answer for.
type Step string

const (
	StepDay1             Step = "await_day1"
	StepDay2             Step = "await_day2"
	StepDay3             Step = "await_day3"
	StepCorrectionDate   Step = "await_correction_date"
	StepCorrectionAmount Step = "await_correction_amount"
	StepEditDate         Step = "await_edit_date"
	StepEditValue        Step = "await_edit_value"
	StepFactorReview     Step = "await_factor_review"

	StepMealSlot       Step = "await_meal_slot"
	StepGlucoseStart   Step = "await_glucose_start"
	StepPauseMinutes   Step = "await_pause_minutes"
	StepCarbsPrimary   Step = "await_carbs_primary"
	StepCarbsSecondary Step = "await_carbs_secondary"
	StepProtein        Step = "await_protein"
	StepFat            Step = "await_fat"
	StepFoodInsulin    Step = "await_food_insulin"
	StepInjections     Step = "await_supplemental_injections"
	StepInjectionTime  Step = "await_injection_offset"
	StepInjectionDose  Step = "await_injection_dose"
	StepGlucoseEnd     Step = "await_glucose_end"
	StepConfirmation   Step = "await_fci_confirmation"

	StepGender    Step = "await_gender"
	StepAgeYears  Step = "await_age_years"
	StepAgeMonths Step = "await_age_months"
	StepWeight    Step = "await_weight"
	StepHeight    Step = "await_height"
	StepActivity  Step = "await_activity"
)

// DaySteps are the factor flow steps for day1..day3.
var DaySteps = [3]Step{StepDay1, StepDay2, StepDay3}

// Injection is a supplemental dose collected during the meal flow.
type Injection struct {
	OffsetMinutes int     `json:"offset_minutes"`
	Dose          float64 `json:"dose"`
}

// Answers accumulates everything typed so far in a flow.
type Answers struct {
	// sensitivity factor flow
	Totals [3]float64 `json:"totals"`

	// correction and edit sub-flows
	EditDay      string  `json:"edit_day,omitempty"`
	EditPrevious float64 `json:"edit_previous,omitempty"`
	ReturnStep   Step    `json:"return_step,omitempty"`
	// latest factor shown on review screens
	Factor float64 `json:"factor,omitempty"`

	// meal flow
	Slot           domain.MealSlot `json:"slot,omitempty"`
	GlucoseStart   float64         `json:"glucose_start,omitempty"`
	GlucoseEnd     float64         `json:"glucose_end,omitempty"`
	PauseMinutes   int             `json:"pause_minutes,omitempty"`
	CarbsPrimary   float64         `json:"carbs_primary,omitempty"`
	CarbsSecondary float64         `json:"carbs_secondary,omitempty"`
	Protein        *float64        `json:"protein,omitempty"`
	Fat            *float64        `json:"fat,omitempty"`
	FoodInsulin    float64         `json:"food_insulin,omitempty"`
	Injections     []Injection     `json:"injections,omitempty"`
	PendingOffset  int             `json:"pending_offset,omitempty"`
	CarbEstimate   *float64        `json:"carb_estimate,omitempty"`

	// calories flow
	Gender    string  `json:"gender,omitempty"`
	AgeYears  int     `json:"age_years,omitempty"`
	AgeMonths int     `json:"age_months,omitempty"`
	WeightKg  float64 `json:"weight_kg,omitempty"`
	HeightCm  float64 `json:"height_cm,omitempty"`
}

// Session is the dialog state of one user. Anchor is the day the flow was
// started on; every relative day of the flow is derived from it.
type Session struct {
	UserID    int64     `json:"user_id"`
	Flow      Flow      `json:"flow"`
	Step      Step      `json:"step"`
	Anchor    string    `json:"anchor"`
	Answers   Answers   `json:"answers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps at most one session per user.
type Store interface {
	// Get returns the session of the user, or nil when there is none.
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context, userID int64) error
}
