package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/formula"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

const (
	maxWeightKg = 400
	minHeightCm = 30
	maxHeightCm = 220
)

func (e *Engine) startCalories(ev Event, today string) *turn {
	return moveTo(e.newSession(ev, state.FlowCalories, today), state.StepGender)
}

func (e *Engine) onGender(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	g := formula.Gender(strings.TrimPrefix(ev.Option, optGenderPrefix))
	if g != formula.Male && g != formula.Female {
		return nil, invalidOption(ev.Option)
	}
	s.Answers.Gender = string(g)
	return moveTo(s, state.StepAgeYears), nil
}

func (e *Engine) onAgeYears(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	years, err := utils.ParseInt(ev.Text, 0, 18)
	if err != nil {
		return nil, err
	}
	s.Answers.AgeYears = years
	s.Answers.AgeMonths = 0
	if years == 0 {
		return moveTo(s, state.StepAgeMonths), nil
	}
	return moveTo(s, state.StepWeight), nil
}

func (e *Engine) onAgeMonths(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	months, err := utils.ParseInt(ev.Text, 0, 12)
	if err != nil {
		return nil, err
	}
	s.Answers.AgeMonths = months
	return moveTo(s, state.StepWeight), nil
}

func (e *Engine) onWeight(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseBounded(ev.Text, 0, maxWeightKg)
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, apperrors.NewOutOfRange(v, 0, maxWeightKg)
	}
	s.Answers.WeightKg = v
	return moveTo(s, state.StepHeight), nil
}

func (e *Engine) onHeight(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	v, err := utils.ParseBounded(ev.Text, minHeightCm, maxHeightCm)
	if err != nil {
		return nil, err
	}
	if v == minHeightCm {
		return nil, apperrors.NewOutOfRange(v, minHeightCm, maxHeightCm)
	}
	s.Answers.HeightCm = v
	return moveTo(s, state.StepActivity), nil
}

// onActivity computes the energy requirement. Nothing is stored.
func (e *Engine) onActivity(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	raw, ok := strings.CutPrefix(ev.Option, optActivityPrefix)
	if !ok {
		return nil, invalidOption(ev.Option)
	}
	level, err := strconv.Atoi(raw)
	if err != nil || level < int(formula.ActivitySedentary) || level > int(formula.ActivityVeryActive) {
		return nil, invalidOption(ev.Option)
	}

	in := formula.EnergyInput{
		Gender:    formula.Gender(s.Answers.Gender),
		AgeYears:  s.Answers.AgeYears,
		AgeMonths: s.Answers.AgeMonths,
		WeightKg:  s.Answers.WeightKg,
		HeightCm:  s.Answers.HeightCm,
		Activity:  formula.ActivityLevel(level),
	}
	return end(caloriesResultPrompt(in, formula.EnergyRequirement(in))), nil
}
