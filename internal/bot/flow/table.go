package flow

import (
	"context"
	"slices"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
)

type handler func(e *Engine, ctx context.Context, s *state.Session, ev Event) (*turn, error)

// stepSpec describes one step: which flows may be waiting at it, the
// question it asks, the hint shown on invalid input and the accepted inputs.
type stepSpec struct {
	flows []state.Flow
	ask   func(s *state.Session) Prompt
	hint  string
	on    map[InputKind]handler
}

func (sp stepSpec) owns(f state.Flow) bool {
	return slices.Contains(sp.flows, f)
}

func (sp stepSpec) accepts(k InputKind) bool {
	_, ok := sp.on[k]
	return ok
}

var transitions map[state.Step]stepSpec

func init() {
	factor := []state.Flow{state.FlowFactor}
	correction := []state.Flow{state.FlowCorrection}
	edit := []state.Flow{state.FlowEdit, state.FlowMeal}
	meal := []state.Flow{state.FlowMeal}
	calories := []state.Flow{state.FlowCalories}

	const (
		hintInsulin = "Введите количество инсулина числом больше нуля, например 24,5"
		hintNumber  = "Введите неотрицательное число, например 45 или 12,5"
		hintGlucose = "Введите сахар крови от 1 до 30 ммоль/л, например 6,4"
		hintDate    = "Введите дату в формате ДД.ММ.ГГГГ, например 05.03.2024"
		hintOption  = "Выберите вариант на кнопках"
	)

	dayStep := stepSpec{flows: factor, ask: askDayTotal, hint: hintInsulin,
		on: map[InputKind]handler{InputText: (*Engine).onDayTotal}}

	transitions = map[state.Step]stepSpec{
		state.StepDay1: dayStep,
		state.StepDay2: dayStep,
		state.StepDay3: dayStep,

		state.StepCorrectionDate: {flows: correction, ask: askCorrectionDate, hint: hintDate,
			on: map[InputKind]handler{InputText: (*Engine).onCorrectionDate}},
		state.StepCorrectionAmount: {flows: correction, ask: askCorrectionAmount, hint: hintInsulin,
			on: map[InputKind]handler{InputText: (*Engine).onCorrectionAmount}},

		state.StepEditDate: {flows: edit, ask: askEditDate, hint: hintDate,
			on: map[InputKind]handler{InputText: (*Engine).onEditDate}},
		state.StepEditValue: {flows: edit, ask: askEditValue, hint: hintInsulin,
			on: map[InputKind]handler{InputText: (*Engine).onEditValue}},
		state.StepFactorReview: {flows: []state.Flow{state.FlowEdit}, ask: askFactorReview, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onFactorReview}},

		state.StepMealSlot: {flows: meal, ask: askMealSlot, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onMealSlot}},
		state.StepGlucoseStart: {flows: meal, ask: askGlucoseStart, hint: hintGlucose,
			on: map[InputKind]handler{InputText: (*Engine).onGlucoseStart}},
		state.StepPauseMinutes: {flows: meal, ask: askPauseMinutes, hint: "Введите паузу целым числом минут, например 15",
			on: map[InputKind]handler{InputText: (*Engine).onPauseMinutes}},
		state.StepCarbsPrimary: {flows: meal, ask: askCarbsPrimary, hint: hintNumber,
			on: map[InputKind]handler{
				InputText:   (*Engine).onCarbsPrimary,
				InputOption: (*Engine).onCarbsEstimate,
				InputPhoto:  (*Engine).onCarbsPhoto,
			}},
		state.StepCarbsSecondary: {flows: meal, ask: askCarbsSecondary, hint: hintNumber,
			on: map[InputKind]handler{
				InputText:   (*Engine).onCarbsSecondary,
				InputOption: (*Engine).onCarbsSecondaryOption,
			}},
		state.StepProtein: {flows: meal, ask: askProtein, hint: hintNumber,
			on: map[InputKind]handler{
				InputText:   (*Engine).onProtein,
				InputOption: (*Engine).onProteinSkip,
			}},
		state.StepFat: {flows: meal, ask: askFat, hint: hintNumber,
			on: map[InputKind]handler{
				InputText:   (*Engine).onFat,
				InputOption: (*Engine).onFatSkip,
			}},
		state.StepFoodInsulin: {flows: meal, ask: askFoodInsulin, hint: hintNumber,
			on: map[InputKind]handler{InputText: (*Engine).onFoodInsulin}},
		state.StepInjections: {flows: meal, ask: askInjections, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onInjectionsOption}},
		state.StepInjectionTime: {flows: meal, ask: askInjectionTime, hint: "Выберите время на кнопках или введите минуты после еды",
			on: map[InputKind]handler{
				InputText:   (*Engine).onInjectionTime,
				InputOption: (*Engine).onInjectionTimeOption,
			}},
		state.StepInjectionDose: {flows: meal, ask: askInjectionDose, hint: hintInsulin,
			on: map[InputKind]handler{InputText: (*Engine).onInjectionDose}},
		state.StepGlucoseEnd: {flows: meal, ask: askGlucoseEnd, hint: hintGlucose,
			on: map[InputKind]handler{InputText: (*Engine).onGlucoseEnd}},
		state.StepConfirmation: {flows: meal, ask: askConfirmation, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onConfirmation}},

		state.StepGender: {flows: calories, ask: askGender, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onGender}},
		state.StepAgeYears: {flows: calories, ask: askAgeYears, hint: "Введите полных лет целым числом от 0 до 18",
			on: map[InputKind]handler{InputText: (*Engine).onAgeYears}},
		state.StepAgeMonths: {flows: calories, ask: askAgeMonths, hint: "Введите полных месяцев целым числом от 0 до 12",
			on: map[InputKind]handler{InputText: (*Engine).onAgeMonths}},
		state.StepWeight: {flows: calories, ask: askWeight, hint: "Введите вес в килограммах больше 0 и не больше 400",
			on: map[InputKind]handler{InputText: (*Engine).onWeight}},
		state.StepHeight: {flows: calories, ask: askHeight, hint: "Введите рост в сантиметрах больше 30 и не больше 220",
			on: map[InputKind]handler{InputText: (*Engine).onHeight}},
		state.StepActivity: {flows: calories, ask: askActivity, hint: hintOption,
			on: map[InputKind]handler{InputOption: (*Engine).onActivity}},
	}
}
