package flow

import (
	"context"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

// startFactor resolves the three days before today. When all of them have
// data the factor is computed at once, otherwise the first gap is asked for.
func (e *Engine) startFactor(ctx context.Context, ev Event, today string) (*turn, error) {
	snap, err := e.deps.Factors.Recalculate(ctx, ev.UserID, today)
	if err != nil {
		return nil, err
	}
	if snap.Value != nil {
		return end(factorResultPrompt(snap.Days, snap.Totals, *snap.Value)), nil
	}

	s := e.newSession(ev, state.FlowFactor, today)
	s.Answers.Totals = snap.Totals
	return moveTo(s, state.DaySteps[snap.Missing()[0]]), nil
}

func dayIndex(step state.Step) int {
	for i, st := range state.DaySteps {
		if st == step {
			return i
		}
	}
	return 0
}

func (e *Engine) onDayTotal(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	amount, err := utils.ParsePositive(ev.Text)
	if err != nil {
		return nil, err
	}

	idx := dayIndex(s.Step)
	days := utils.SensitivityDays(s.Anchor)
	if err := e.deps.Insulin.ReplaceManual(ctx, ev.UserID, days[idx], amount); err != nil {
		return nil, err
	}
	s.Answers.Totals[idx] = amount

	for j := idx + 1; j < len(days); j++ {
		if s.Answers.Totals[j] > 0 {
			continue
		}
		v, err := e.deps.Resolver.ResolveDailyInsulin(ctx, ev.UserID, days[j])
		if err != nil {
			return nil, err
		}
		if v > 0 {
			s.Answers.Totals[j] = v
			continue
		}
		return moveTo(s, state.DaySteps[j]), nil
	}

	f, err := e.deps.Factors.Save(ctx, ev.UserID, days, s.Answers.Totals)
	if err != nil {
		return nil, err
	}
	return end(factorResultPrompt(days, s.Answers.Totals, f.Value)), nil
}

func (e *Engine) startCorrection(ev Event, today string) *turn {
	return moveTo(e.newSession(ev, state.FlowCorrection, today), state.StepCorrectionDate)
}

func (e *Engine) onCorrectionDate(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	day, err := utils.ParseDate(ev.Text)
	if err != nil {
		return nil, err
	}
	s.Answers.EditDay = day
	return moveTo(s, state.StepCorrectionAmount), nil
}

func (e *Engine) onCorrectionAmount(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	amount, err := utils.ParsePositive(ev.Text)
	if err != nil {
		return nil, err
	}
	if err := e.deps.Insulin.ReplaceManual(ctx, ev.UserID, s.Answers.EditDay, amount); err != nil {
		return nil, err
	}
	return end(correctionDonePrompt(s.Answers.EditDay, amount)), nil
}

// startEdit opens the standalone edit flow, which returns to a review screen.
func (e *Engine) startEdit(ctx context.Context, ev Event, today string) (*turn, error) {
	snap, err := e.deps.Factors.Snapshot(ctx, ev.UserID, today)
	if err != nil {
		return nil, err
	}
	s := e.newSession(ev, state.FlowEdit, today)
	s.Answers.Totals = snap.Totals
	if snap.Latest != nil {
		s.Answers.Factor = snap.Latest.Value
	}
	s.Answers.ReturnStep = state.StepFactorReview
	return moveTo(s, state.StepEditDate), nil
}

func (e *Engine) onEditDate(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	day, err := utils.ParseDate(ev.Text)
	if err != nil {
		return nil, err
	}
	current, err := e.deps.Resolver.ResolveDailyInsulin(ctx, ev.UserID, day)
	if err != nil {
		return nil, err
	}
	s.Answers.EditDay = day
	s.Answers.EditPrevious = current
	return moveTo(s, state.StepEditValue), nil
}

// onEditValue replaces the day's total, recomputes the factor when the
// anchor days are complete and goes back to the step the edit came from.
func (e *Engine) onEditValue(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	amount, err := utils.ParsePositive(ev.Text)
	if err != nil {
		return nil, err
	}
	day := s.Answers.EditDay
	if err := e.deps.Insulin.ReplaceManual(ctx, ev.UserID, day, amount); err != nil {
		return nil, err
	}

	snap, err := e.deps.Factors.Recalculate(ctx, ev.UserID, s.Anchor)
	if err != nil {
		return nil, err
	}
	s.Answers.Totals = snap.Totals
	if snap.Latest != nil {
		s.Answers.Factor = snap.Latest.Value
	}

	back := s.Answers.ReturnStep
	if back == "" {
		back = state.StepFactorReview
	}
	s.Answers.EditDay = ""
	s.Answers.EditPrevious = 0
	s.Answers.ReturnStep = ""
	return moveTo(s, back, editDonePrompt(day, amount, snap.Value)), nil
}

func (e *Engine) onFactorReview(ctx context.Context, s *state.Session, ev Event) (*turn, error) {
	switch ev.Option {
	case optReviewAgain:
		s.Answers.ReturnStep = state.StepFactorReview
		return moveTo(s, state.StepEditDate), nil
	case optReviewDone:
		return end(reviewDonePrompt(s.Answers.Factor)), nil
	}
	return nil, invalidOption(ev.Option)
}
