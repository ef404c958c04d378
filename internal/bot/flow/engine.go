// Package flow drives the multi-step dialogs of the bot. It is independent
// of Telegram: updates come in as Events and answers leave through a Channel.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/interfaces"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

// Deps holds the services the dialogs call into
type Deps struct {
	Insulin    interfaces.InsulinServiceInterface
	Resolver   interfaces.ResolverInterface
	Factors    interfaces.FactorServiceInterface
	Meals      interfaces.MealServiceInterface
	Statistics interfaces.StatisticsServiceInterface
	Food       interfaces.FoodAnalysisServiceInterface
}

const failureSendTimeout = 10 * time.Second

type Engine struct {
	deps     Deps
	sessions state.Store
	channel  Channel
	locks    *state.UserLocks
	clock    utils.Clock
	loc      *time.Location
	errs     *apperrors.Handler
}

type EngineOption func(*Engine)

// WithClock replaces time.Now.
func WithClock(c utils.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the time zone that decides what "today" is.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(deps Deps, sessions state.Store, channel Channel, opts ...EngineOption) *Engine {
	e := &Engine{
		deps:     deps,
		sessions: sessions,
		channel:  channel,
		locks:    state.NewUserLocks(),
		clock:    time.Now,
		loc:      time.UTC,
		errs:     apperrors.NewHandler(logger.GetLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn is the outcome of one handled input.
type turn struct {
	prompts []Prompt
	// save is persisted after the prompts were delivered.
	save *state.Session
	// clear drops the session before the prompts are delivered.
	clear bool
}

// next moves the dialog forward.
func next(s *state.Session, prompts ...Prompt) *turn {
	return &turn{prompts: prompts, save: s}
}

// say answers without touching the session.
func say(prompts ...Prompt) *turn {
	return &turn{prompts: prompts}
}

// end finishes the dialog.
func end(prompts ...Prompt) *turn {
	return &turn{prompts: prompts, clear: true}
}

// moveTo sets the step and asks its question after any leading prompts.
func moveTo(s *state.Session, step state.Step, leading ...Prompt) *turn {
	s.Step = step
	return next(s, append(leading, transitions[step].ask(s))...)
}

// Handle processes one user turn. Turns of the same user are serialized.
// Errors are logged here; the returned error is informational.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	unlock := e.locks.Lock(ev.TelegramID)
	defer unlock()

	ctx = logger.NewContext(ctx, "telegram_id", ev.TelegramID, "input", ev.Kind.String())

	if ev.Kind == InputOption && ev.Command == CmdNone {
		if cmd, arg, ok := ParseCommandOption(ev.Option); ok {
			ev.Command, ev.Arg = cmd, arg
		}
	}

	var (
		t   *turn
		err error
	)
	if ev.Command != CmdNone {
		logger.FromContext(ctx).Debug("Running command", "command", ev.Command, "arg", ev.Arg)
		t, err = e.runCommand(ctx, ev)
	} else {
		t, err = e.dispatch(ctx, ev)
	}
	if err != nil {
		return e.fail(ctx, ev, err)
	}
	return e.apply(ctx, ev, t)
}

func (e *Engine) dispatch(ctx context.Context, ev Event) (*turn, error) {
	s, err := e.sessions.Get(ctx, ev.TelegramID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to load session: %w", err))
	}
	if s == nil {
		return say(idlePrompt()), nil
	}

	spec, ok := transitions[s.Step]
	if !ok || !spec.owns(s.Flow) {
		logger.FromContext(ctx).Warn("Session step does not belong to its flow, resetting",
			"flow", s.Flow, "step", s.Step)
		return end(resetPrompt()), nil
	}

	h, ok := spec.on[ev.Kind]
	if !ok {
		return say(spec.ask(s).withNotice(wrongInputNotice(spec))), nil
	}

	t, err := h(e, ctx, s, ev)
	switch {
	case err == nil:
		return t, nil
	case apperrors.IsValidation(err):
		e.errs.Handle(ctx, err)
		return say(spec.ask(s).withNotice("⚠️ " + spec.hint)), nil
	case errors.Is(err, apperrors.ErrMissingPrerequisite):
		e.errs.Handle(ctx, err)
		return end(missingFactorPrompt()), nil
	}
	return nil, err
}

func (e *Engine) apply(ctx context.Context, ev Event, t *turn) error {
	if t.clear {
		if err := e.sessions.Clear(ctx, ev.TelegramID); err != nil {
			return e.fail(ctx, ev, apperrors.NewDatabaseError(fmt.Errorf("failed to clear session: %w", err)))
		}
	}

	if err := e.send(ctx, ev, t.prompts...); err != nil {
		e.errs.Handle(ctx, err)
		return err
	}

	if t.save != nil {
		if err := e.sessions.Save(ctx, t.save); err != nil {
			return e.fail(ctx, ev, apperrors.NewDatabaseError(fmt.Errorf("failed to save session: %w", err)))
		}
	}
	return nil
}

// fail logs err and tells the user to retry. The session is left as it was.
func (e *Engine) fail(ctx context.Context, ev Event, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = apperrors.NewTimeoutError("dialog turn").WithContext("cause", err.Error())
		// the turn deadline is spent, the apology gets its own
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), failureSendTimeout)
		defer cancel()
	}
	e.errs.Handle(ctx, err)
	if sendErr := e.send(ctx, ev, failurePrompt()); sendErr != nil {
		e.errs.Handle(ctx, sendErr)
	}
	return err
}

// send delivers prompts in order. Only the first one may replace the
// message the user clicked on.
func (e *Engine) send(ctx context.Context, ev Event, prompts ...Prompt) error {
	to := ev.target()
	for _, p := range prompts {
		if err := e.channel.Send(ctx, to, p); err != nil {
			return apperrors.NewExternalAPIError(err, "telegram")
		}
		to.MessageID = 0
	}
	return nil
}

func (e *Engine) today() string {
	return utils.Today(e.clock(), e.loc)
}

func (e *Engine) newSession(ev Event, flow state.Flow, anchor string) *state.Session {
	return &state.Session{UserID: ev.TelegramID, Flow: flow, Anchor: anchor}
}
