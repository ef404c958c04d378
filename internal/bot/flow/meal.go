package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/services"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

func (e *Engine) startMeal(ev Event, today string) *turn {
	return moveTo(e.newSession(ev, state.FlowMeal, today), state.StepMealSlot)
}

func (e *Engine) onMealSlot(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	slot := domain.MealSlot(strings.TrimPrefix(ev.Option, optSlotPrefix))
	if !strings.HasPrefix(ev.Option, optSlotPrefix) || !slot.Valid() {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.Slot = slot
	return moveTo(s, state.StepGlucoseStart), nil
}

func (e *Engine) onGlucoseStart(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseGlucose(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.GlucoseStart = v
	return moveTo(s, state.StepPauseMinutes), nil
}

func (e *Engine) onPauseMinutes(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseMinutes(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.PauseMinutes = v
	return moveTo(s, state.StepCarbsPrimary), nil
}

func (e *Engine) onCarbsPrimary(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseDecimal(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.CarbsPrimary = v
	s.Answers.CarbEstimate = nil
	return moveTo(s, state.StepCarbsSecondary), nil
}

func (e *Engine) onCarbsEstimate(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	if ev.Option != optUseEstimate || s.Answers.CarbEstimate == nil {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.CarbsPrimary = *s.Answers.CarbEstimate
	s.Answers.CarbEstimate = nil
	return moveTo(s, state.StepCarbsSecondary), nil
}

// onCarbsPhoto asks the AI providers for a carbohydrate estimate and offers
// it as an option. Failures fall back to typing the number.
func (e *Engine) onCarbsPhoto(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	if e.deps.Food == nil || !e.deps.Food.Enabled() {
		return say(askCarbsPrimary(s).withNotice(photoDisabledNotice)), nil
	}

	if err := e.send(ctx, ev, Prompt{Text: photoProgressText}); err != nil {
		return nil, err
	}

	est, err := e.deps.Food.EstimateMealCarbs(ctx, ev.PhotoURL)
	if err != nil {
		e.errs.Handle(ctx, err)
		return say(askCarbsPrimary(s).withNotice(photoFailedNotice)), nil
	}

	s.Answers.CarbEstimate = &est.Carbs
	return next(s, askCarbsPrimary(s).withNotice(carbEstimateNotice(est))), nil
}

func (e *Engine) onCarbsSecondary(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseDecimal(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.CarbsSecondary = v
	return moveTo(s, state.StepProtein), nil
}

func (e *Engine) onCarbsSecondaryOption(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	switch ev.Option {
	case optAdd:
		return say(question("🍽️ Введите количество углеводов второго блюда в граммах:")), nil
	case optSkip:
		s.Answers.CarbsSecondary = 0
		return moveTo(s, state.StepProtein), nil
	}
	return nil, invalidOption(ev.Option)
}

func (e *Engine) onProtein(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseDecimal(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.Protein = &v
	return moveTo(s, state.StepFat), nil
}

func (e *Engine) onProteinSkip(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	if ev.Option != optSkip {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.Protein = nil
	return moveTo(s, state.StepFat), nil
}

func (e *Engine) onFat(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseDecimal(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.Fat = &v
	return moveTo(s, state.StepFoodInsulin), nil
}

func (e *Engine) onFatSkip(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	if ev.Option != optSkip {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.Fat = nil
	return moveTo(s, state.StepFoodInsulin), nil
}

func (e *Engine) onFoodInsulin(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseDecimal(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.FoodInsulin = v
	return moveTo(s, state.StepInjections), nil
}

func (e *Engine) onInjectionsOption(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	switch ev.Option {
	case optAdd:
		return moveTo(s, state.StepInjectionTime), nil
	case optDone:
		return moveTo(s, state.StepGlucoseEnd), nil
	}
	return nil, invalidOption(ev.Option)
}

func (e *Engine) onInjectionTime(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseMinutes(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.PendingOffset = v
	return moveTo(s, state.StepInjectionDose), nil
}

func (e *Engine) onInjectionTimeOption(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	raw, ok := strings.CutPrefix(ev.Option, optOffsetPrefix)
	if !ok {
		return nil, invalidOption(ev.Option)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.PendingOffset = v
	return moveTo(s, state.StepInjectionDose), nil
}

func (e *Engine) onInjectionDose(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	dose, err := utils.ParsePositive(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.Injections = append(s.Answers.Injections, state.Injection{
		OffsetMinutes: s.Answers.PendingOffset,
		Dose:          dose,
	})
	s.Answers.PendingOffset = 0
	return moveTo(s, state.StepInjections), nil
}

// onGlucoseEnd loads the factor the coefficient will be computed with; a
// meal cannot be finished without one.
func (e *Engine) onGlucoseEnd(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseGlucose(ev.Text)
	if err != nil {
		return nil, err
	}
	snap, err := e.deps.Factors.Snapshot(ctx, ev.UserID, s.Anchor)
	if err != nil {
		return nil, err
	}
	if snap.Latest == nil {
		return nil, apperrors.NewMissingPrerequisite("sensitivity factor")
	}

	s.Answers.GlucoseEnd = v
	s.Answers.Totals = snap.Totals
	s.Answers.Factor = snap.Latest.Value
	return moveTo(s, state.StepConfirmation), nil
}

func (e *Engine) onConfirmation(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	switch ev.Option {
	case optEditDay:
		s.Answers.ReturnStep = state.StepConfirmation
		return moveTo(s, state.StepEditDate), nil
	case optFinish:
		meal, err := e.deps.Meals.Commit(ctx, mealDraft(s, ev.UserID))
		if err != nil {
			return nil, err
		}
		return end(mealResultPrompt(meal)), nil
	}
	return nil, invalidOption(ev.Option)
}

func mealDraft(s *state.Session, userID uint) services.MealDraft {
	a := s.Answers
	draft := services.MealDraft{
		UserID:         userID,
		Day:            s.Anchor,
		Slot:           a.Slot,
		GlucoseStart:   a.GlucoseStart,
		GlucoseEnd:     a.GlucoseEnd,
		PauseMinutes:   a.PauseMinutes,
		CarbsPrimary:   a.CarbsPrimary,
		CarbsSecondary: a.CarbsSecondary,
		Protein:        a.Protein,
		Fat:            a.Fat,
		FoodInsulin:    a.FoodInsulin,
	}
	for _, inj := range a.Injections {
		draft.Injections = append(draft.Injections, services.Injection{
			OffsetMinutes: inj.OffsetMinutes,
			Dose:          inj.Dose,
		})
	}
	return draft
}
