package flow

import (
	"context"

	"github.com/vladimiradmaev/diabetbot/internal/domain"
)

// runCommand handles a command from any state. Starting a flow replaces
// whatever session the user had.
func (e *Engine) runCommand(ctx context.Context, ev Event) (*turn, error) {
	today := e.today()

	switch ev.Command {
	case CmdStart:
		return end(welcomePrompt()), nil
	case CmdHelp:
		return say(helpPrompt()), nil
	case CmdCancel:
		return end(cancelledPrompt()), nil
	case CmdFactor:
		return e.startFactor(ctx, ev, today)
	case CmdCorrection:
		return e.startCorrection(ev, today), nil
	case CmdEdit:
		return e.startEdit(ctx, ev, today)
	case CmdMeal:
		return e.startMeal(ev, today), nil
	case CmdCalories:
		return e.startCalories(ev, today), nil
	case CmdStatistics:
		return e.statistics(ctx, ev, today)
	}
	return say(idlePrompt()), nil
}

// statistics is read only. Without a valid period it offers the choice.
func (e *Engine) statistics(ctx context.Context, ev Event, today string) (*turn, error) {
	period := domain.StatsPeriod(ev.Arg)
	if !period.Valid() {
		return say(periodPrompt()), nil
	}

	report, err := e.deps.Statistics.Summary(ctx, ev.UserID, period, today)
	if err != nil {
		return nil, err
	}
	return say(reportPrompt(report)), nil
}
