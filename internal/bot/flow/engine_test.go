package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/formula"
	"github.com/vladimiradmaev/diabetbot/internal/interfaces"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
	"github.com/vladimiradmaev/diabetbot/internal/services"
)

const (
	telegramID = int64(1001)
	today      = "2024-03-10"
)

type sent struct {
	to     Target
	prompt Prompt
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (c *fakeChannel) Send(_ context.Context, to Target, p Prompt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sent{to: to, prompt: p})
	return nil
}

func (c *fakeChannel) last() sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return sent{}
	}
	return c.sent[len(c.sent)-1]
}

type fakeFood struct {
	enabled bool
	est     *services.CarbEstimate
	err     error
}

func (f *fakeFood) Enabled() bool { return f.enabled }

func (f *fakeFood) EstimateMealCarbs(context.Context, string) (*services.CarbEstimate, error) {
	return f.est, f.err
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	engine   *Engine
	store    *repository.Store
	sessions *state.Manager
	channel  *fakeChannel
	user     *database.User
}

func newHarness(t *testing.T, food interfaces.FoodAnalysisServiceInterface) *harness {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	store := repository.New(db)

	ctx := context.Background()
	user, err := services.NewUserService(store).RegisterUser(ctx, telegramID, "tester", "Test", "User")
	require.NoError(t, err)

	resolver := services.NewResolver(store)
	deps := Deps{
		Insulin:    services.NewInsulinService(store),
		Resolver:   resolver,
		Factors:    services.NewFactorService(store, resolver),
		Meals:      services.NewMealService(store),
		Statistics: services.NewStatisticsService(store, resolver),
		Food:       food,
	}
	sessions := state.NewManager(time.Hour)
	channel := &fakeChannel{}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	return &harness{
		t:        t,
		ctx:      ctx,
		engine:   NewEngine(deps, sessions, channel, WithClock(func() time.Time { return now })),
		store:    store,
		sessions: sessions,
		channel:  channel,
		user:     user,
	}
}

func (h *harness) event() Event {
	return Event{UserID: h.user.ID, TelegramID: telegramID, ChatID: telegramID}
}

func (h *harness) text(s string) error {
	ev := h.event()
	ev.Kind, ev.Text = InputText, s
	return h.engine.Handle(h.ctx, ev)
}

func (h *harness) option(v string) error {
	ev := h.event()
	ev.Kind, ev.Option, ev.MessageID = InputOption, v, 500
	return h.engine.Handle(h.ctx, ev)
}

func (h *harness) command(cmd Command) error {
	ev := h.event()
	ev.Kind, ev.Command = InputText, cmd
	return h.engine.Handle(h.ctx, ev)
}

func (h *harness) photo(url string) error {
	ev := h.event()
	ev.Kind, ev.PhotoURL = InputPhoto, url
	return h.engine.Handle(h.ctx, ev)
}

func (h *harness) must(err error) {
	h.t.Helper()
	require.NoError(h.t, err)
}

func (h *harness) session() *state.Session {
	h.t.Helper()
	s, err := h.sessions.Get(h.ctx, telegramID)
	require.NoError(h.t, err)
	return s
}

func (h *harness) step() state.Step {
	h.t.Helper()
	s := h.session()
	if s == nil {
		return ""
	}
	return s.Step
}

func (h *harness) lastText() string {
	return h.channel.last().prompt.Text
}

// turnTexts runs one turn and returns every text it sent, in order.
func (h *harness) turnTexts(run func() error) string {
	h.t.Helper()
	h.channel.mu.Lock()
	from := len(h.channel.sent)
	h.channel.mu.Unlock()

	h.must(run())

	h.channel.mu.Lock()
	defer h.channel.mu.Unlock()
	texts := make([]string, 0, len(h.channel.sent)-from)
	for _, m := range h.channel.sent[from:] {
		texts = append(texts, m.prompt.Text)
	}
	return strings.Join(texts, "\n")
}

func (h *harness) resolve(day string) float64 {
	h.t.Helper()
	v, err := services.NewResolver(h.store).ResolveDailyInsulin(h.ctx, h.user.ID, day)
	require.NoError(h.t, err)
	return v
}

func (h *harness) seedManual(day string, amount float64) {
	h.t.Helper()
	require.NoError(h.t, services.NewInsulinService(h.store).ReplaceManual(h.ctx, h.user.ID, day, amount))
}

func (h *harness) seedFactor(day string, value float64) {
	h.t.Helper()
	require.NoError(h.t, h.store.Factors.Upsert(h.ctx, &database.SensitivityFactor{
		UserID: h.user.ID, Day: day, Value: value, Day1Total: 1, Day2Total: 1, Day3Total: 1,
	}))
}

func TestFactorFlowAsksForEachMissingDay(t *testing.T) {
	h := newHarness(t, nil)

	h.must(h.command(CmdFactor))
	assert.Equal(t, state.StepDay1, h.step())
	assert.Contains(t, h.lastText(), "07.03.2024")

	h.must(h.text("25,5 ед"))
	assert.Equal(t, state.StepDay2, h.step())
	assert.Contains(t, h.lastText(), "08.03.2024")

	h.must(h.text("30"))
	assert.Equal(t, state.StepDay3, h.step())

	h.must(h.text("28"))
	assert.Nil(t, h.session())
	assert.Contains(t, h.lastText(), "3.59")
	assert.True(t, h.channel.last().prompt.MainMenu)

	latest, err := h.store.Factors.Latest(h.ctx, h.user.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-03-09", latest.Day)
	assert.InDelta(t, 3.5928, latest.Value, 1e-4)

	assert.Equal(t, 25.5, h.resolve("2024-03-07"))
	assert.Equal(t, 30.0, h.resolve("2024-03-08"))
	assert.Equal(t, 28.0, h.resolve("2024-03-09"))
}

func TestFactorFlowSkipsResolvableDays(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Insulin.Create(h.ctx, &database.InsulinRecord{
		UserID: h.user.ID, Day: "2024-03-08", Category: domain.CategoryFood, Origin: domain.OriginAutomatic, Amount: 30,
	}))

	h.must(h.command(CmdFactor))
	assert.Equal(t, state.StepDay1, h.step())

	h.must(h.text("25.5"))
	assert.Equal(t, state.StepDay3, h.step(), "day 2 resolves from automatic records")

	h.must(h.text("28"))
	assert.Nil(t, h.session())

	latest, err := h.store.Factors.Latest(h.ctx, h.user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5928, latest.Value, 1e-4)
}

func TestFactorFlowComputesImmediately(t *testing.T) {
	h := newHarness(t, nil)
	h.seedManual("2024-03-07", 25.5)
	h.seedManual("2024-03-08", 30)
	h.seedManual("2024-03-09", 28)

	h.must(h.option(CommandOption(CmdFactor, "")))
	assert.Nil(t, h.session())

	last := h.channel.last()
	assert.Contains(t, last.prompt.Text, "3.59")
	assert.Equal(t, 500, last.to.MessageID, "answer replaces the clicked message")
	require.Len(t, last.prompt.Options, 2)
	assert.Equal(t, CommandOption(CmdCorrection, ""), last.prompt.Options[0][0].Value)
	assert.Equal(t, CommandOption(CmdEdit, ""), last.prompt.Options[1][0].Value)
}

func TestInvalidInputKeepsStep(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdFactor))

	for _, input := range []string{"abc", "0", ""} {
		h.must(h.text(input))
		assert.Equal(t, state.StepDay1, h.step(), "input %q", input)
		assert.Contains(t, h.lastText(), "⚠️")
	}
	assert.Zero(t, h.resolve("2024-03-07"))
}

func TestWrongInputKindRepeatsQuestion(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdMeal))

	h.must(h.text("обед"))
	assert.Equal(t, state.StepMealSlot, h.step())
	assert.Contains(t, h.lastText(), "кнопках")

	h.must(h.option("slot:brunch"))
	assert.Equal(t, state.StepMealSlot, h.step())
}

func TestCorrectionReplacesDay(t *testing.T) {
	h := newHarness(t, nil)

	h.must(h.option(CommandOption(CmdCorrection, "")))
	assert.Equal(t, state.StepCorrectionDate, h.step())
	assert.Equal(t, state.FlowCorrection, h.session().Flow)

	h.must(h.text("31.02.2024"))
	assert.Equal(t, state.StepCorrectionDate, h.step())

	h.must(h.text("05.03.2024"))
	assert.Equal(t, state.StepCorrectionAmount, h.step())

	h.must(h.text("20"))
	assert.Nil(t, h.session())
	assert.Equal(t, 20.0, h.resolve("2024-03-05"))

	h.must(h.option(CommandOption(CmdCorrection, "")))
	h.must(h.text("05.03.2024"))
	h.must(h.text("22,5"))
	assert.Equal(t, 22.5, h.resolve("2024-03-05"), "replaced, not added")
}

func TestStandaloneEditRecomputesFactor(t *testing.T) {
	h := newHarness(t, nil)
	h.seedManual("2024-03-07", 25.5)
	h.seedManual("2024-03-08", 30)
	h.seedManual("2024-03-09", 28)

	h.must(h.option(CommandOption(CmdEdit, "")))
	assert.Equal(t, state.StepEditDate, h.step())

	h.must(h.text("08.03.2024"))
	assert.Equal(t, state.StepEditValue, h.step())
	assert.Contains(t, h.lastText(), "30.0 ед")

	h.must(h.text("40"))
	s := h.session()
	require.NotNil(t, s)
	assert.Equal(t, state.FlowEdit, s.Flow)
	assert.Equal(t, state.StepFactorReview, s.Step)
	assert.InDelta(t, 3.2086, s.Answers.Factor, 1e-4)

	latest, err := h.store.Factors.Latest(h.ctx, h.user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.2086, latest.Value, 1e-4)

	h.must(h.option(optReviewAgain))
	assert.Equal(t, state.StepEditDate, h.step())
	h.must(h.text("07.03.2024"))
	h.must(h.text("25.5"))
	assert.Equal(t, state.StepFactorReview, h.step())

	h.must(h.option(optReviewDone))
	assert.Nil(t, h.session())
}

func TestEditWithIncompleteDaysKeepsFactor(t *testing.T) {
	h := newHarness(t, nil)

	h.must(h.command(CmdEdit))
	h.must(h.text("08.03.2024"))
	assert.Contains(t, h.lastText(), "нет данных")

	texts := h.turnTexts(func() error { return h.text("30") })
	assert.Equal(t, state.StepFactorReview, h.step())
	assert.Contains(t, texts, "не хватает данных")
	assert.Contains(t, h.lastText(), "ФЧИ ещё не рассчитан", "review screen comes last")

	latest, err := h.store.Factors.Latest(h.ctx, h.user.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

// walkMeal answers the meal flow up to the end glucose question.
func (h *harness) walkMeal() {
	h.t.Helper()
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:lunch"))
	h.must(h.text("6,5"))
	h.must(h.text("15"))
	h.must(h.text("60"))
	h.must(h.option(optSkip))
	h.must(h.text("20"))
	h.must(h.option(optSkip))
	h.must(h.text("5"))
	h.must(h.option(optAdd))
	h.must(h.option("offset:120"))
	h.must(h.text("2"))
	require.Equal(h.t, state.StepInjections, h.step())
	h.must(h.option(optDone))
	require.Equal(h.t, state.StepGlucoseEnd, h.step())
}

func TestMealFlowCommits(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFactor("2024-03-09", 3.6)

	h.walkMeal()
	s := h.session()
	protein := 20.0
	assert.Equal(t, domain.SlotLunch, s.Answers.Slot)
	assert.Equal(t, 6.5, s.Answers.GlucoseStart)
	assert.Equal(t, 15, s.Answers.PauseMinutes)
	assert.Equal(t, &protein, s.Answers.Protein)
	assert.Nil(t, s.Answers.Fat)
	assert.Equal(t, []state.Injection{{OffsetMinutes: 120, Dose: 2}}, s.Answers.Injections)

	h.must(h.text("9.5"))
	assert.Equal(t, state.StepConfirmation, h.step())
	assert.Equal(t, 3.6, h.session().Answers.Factor)

	h.must(h.option(optFinish))
	assert.Nil(t, h.session())

	meals, err := h.store.Meals.Range(h.ctx, h.user.ID, today, today)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	meal := meals[0]

	want, err := formula.MealCoefficient(formula.MealInput{
		GlucoseStart: 6.5, GlucoseEnd: 9.5, Factor: 3.6,
		FoodInsulin: 5, SupplementalInsulin: 1.2,
		CarbsPrimary: 60, Protein: &protein,
	})
	require.NoError(t, err)
	assert.InDelta(t, want, meal.Coefficient, 1e-9)
	assert.InDelta(t, 1.2, meal.SupplementalInsulin, 1e-9)
	require.Len(t, meal.Injections, 1)
	assert.Equal(t, 120, meal.Injections[0].OffsetMinutes)
	assert.Contains(t, h.lastText(), fmt.Sprintf("%.3f", want))

	auto, err := h.store.Insulin.Sum(h.ctx, h.user.ID, today, domain.OriginAutomatic)
	require.NoError(t, err)
	assert.InDelta(t, 6.2, auto, 1e-9)
}

func TestMealFlowWithoutFactorAborts(t *testing.T) {
	h := newHarness(t, nil)

	h.walkMeal()
	h.must(h.text("9.5"))

	assert.Nil(t, h.session())
	assert.Contains(t, h.lastText(), "Сначала нужно рассчитать ФЧИ")

	meals, err := h.store.Meals.Range(h.ctx, h.user.ID, today, today)
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func TestMealFlowRejectsGlucoseOutOfRange(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:dinner"))

	h.must(h.text("35"))
	assert.Equal(t, state.StepGlucoseStart, h.step())
	h.must(h.text("0,5"))
	assert.Equal(t, state.StepGlucoseStart, h.step())
	h.must(h.text("30"))
	assert.Equal(t, state.StepPauseMinutes, h.step())
}

func TestMealFlowNestedEdit(t *testing.T) {
	h := newHarness(t, nil)
	h.seedManual("2024-03-07", 25.5)
	h.seedManual("2024-03-08", 30)
	h.seedManual("2024-03-09", 28)
	h.seedFactor("2024-03-09", 3.5928)

	h.walkMeal()
	h.must(h.text("9.5"))
	require.Equal(t, state.StepConfirmation, h.step())

	h.must(h.option(optEditDay))
	s := h.session()
	assert.Equal(t, state.FlowMeal, s.Flow)
	assert.Equal(t, state.StepEditDate, s.Step)

	h.must(h.text("08.03.2024"))
	h.must(h.text("40"))
	s = h.session()
	assert.Equal(t, state.FlowMeal, s.Flow)
	assert.Equal(t, state.StepConfirmation, s.Step)
	assert.InDelta(t, 3.2086, s.Answers.Factor, 1e-4)
	assert.Equal(t, [3]float64{25.5, 40, 28}, s.Answers.Totals)

	h.must(h.option(optFinish))
	assert.Nil(t, h.session())

	meals, err := h.store.Meals.Range(h.ctx, h.user.ID, today, today)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.InDelta(t, 3.2086, meals[0].Factor, 1e-4)
}

func TestPhotoEstimate(t *testing.T) {
	food := &fakeFood{enabled: true, est: &services.CarbEstimate{Carbs: 45.5, Confidence: "high", FoodItems: []string{"рис"}}}
	h := newHarness(t, food)
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:breakfast"))
	h.must(h.text("6"))
	h.must(h.text("10"))

	h.must(h.photo("https://example.com/food.jpg"))
	s := h.session()
	assert.Equal(t, state.StepCarbsPrimary, s.Step)
	require.NotNil(t, s.Answers.CarbEstimate)
	assert.Equal(t, 45.5, *s.Answers.CarbEstimate)
	assert.Contains(t, h.lastText(), "45.5")

	h.must(h.option(optUseEstimate))
	s = h.session()
	assert.Equal(t, state.StepCarbsSecondary, s.Step)
	assert.Equal(t, 45.5, s.Answers.CarbsPrimary)
	assert.Nil(t, s.Answers.CarbEstimate)
}

func TestPhotoWithoutAnalyzer(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:breakfast"))
	h.must(h.text("6"))
	h.must(h.text("10"))

	h.must(h.photo("https://example.com/food.jpg"))
	assert.Equal(t, state.StepCarbsPrimary, h.step())
	assert.Contains(t, h.lastText(), "не настроено")

	h.must(h.option(optUseEstimate))
	assert.Equal(t, state.StepCarbsPrimary, h.step(), "no estimate to use")
}

func TestPhotoEstimateFailureFallsBack(t *testing.T) {
	food := &fakeFood{enabled: true, err: apperrors.NewExternalAPIError(errors.New("boom"), "gemini")}
	h := newHarness(t, food)
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:breakfast"))
	h.must(h.text("6"))
	h.must(h.text("10"))

	h.must(h.photo("https://example.com/food.jpg"))
	assert.Equal(t, state.StepCarbsPrimary, h.step())
	assert.Contains(t, h.lastText(), "Не удалось распознать")
}

func TestCancelFromAnyState(t *testing.T) {
	starts := []Command{CmdFactor, CmdMeal, CmdCalories, CmdCorrection, CmdEdit}
	for _, cmd := range starts {
		t.Run(string(cmd), func(t *testing.T) {
			h := newHarness(t, nil)
			h.must(h.command(cmd))
			require.NotNil(t, h.session())

			h.must(h.option(CommandOption(CmdCancel, "")))
			assert.Nil(t, h.session())
			assert.Contains(t, h.lastText(), "отменено")
		})
	}
}

func TestCommandReplacesSession(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdMeal))
	h.must(h.option("slot:lunch"))

	h.must(h.command(CmdCalories))
	s := h.session()
	assert.Equal(t, state.FlowCalories, s.Flow)
	assert.Equal(t, state.StepGender, s.Step)
	assert.Empty(t, s.Answers.Slot)
}

func TestCaloriesFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdCalories))
	h.must(h.option("gender:male"))

	h.must(h.text("19"))
	assert.Equal(t, state.StepAgeYears, h.step())
	h.must(h.text("10"))
	assert.Equal(t, state.StepWeight, h.step())

	h.must(h.text("0"))
	assert.Equal(t, state.StepWeight, h.step())
	h.must(h.text("35"))

	h.must(h.text("30"))
	assert.Equal(t, state.StepHeight, h.step())
	h.must(h.text("140"))
	assert.Equal(t, state.StepActivity, h.step())

	h.must(h.option("activity:2"))
	assert.Nil(t, h.session())

	kcal := formula.EnergyRequirement(formula.EnergyInput{
		Gender: formula.Male, AgeYears: 10, WeightKg: 35, HeightCm: 140, Activity: formula.ActivityActive,
	})
	assert.Contains(t, h.lastText(), fmt.Sprintf("%.0f ккал", kcal))
}

func TestCaloriesInfantAsksMonths(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdCalories))
	h.must(h.option("gender:female"))
	h.must(h.text("0"))
	assert.Equal(t, state.StepAgeMonths, h.step())

	h.must(h.text("13"))
	assert.Equal(t, state.StepAgeMonths, h.step())
	h.must(h.text("5"))
	assert.Equal(t, state.StepWeight, h.step())
	assert.Equal(t, 5, h.session().Answers.AgeMonths)
}

func TestSendFailureLeavesSessionUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdFactor))

	h.channel.err = errors.New("telegram is down")
	err := h.text("25")
	assert.ErrorIs(t, err, apperrors.ErrExternalAPI)
	assert.Equal(t, state.StepDay1, h.step())

	h.channel.err = nil
	h.must(h.text("25"))
	assert.Equal(t, state.StepDay2, h.step())
	assert.Equal(t, 25.0, h.resolve("2024-03-07"), "retry does not double the manual total")
}

func TestExpiredTurnReportsTimeout(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(h.ctx, -time.Second)
	defer cancel()

	ev := h.event()
	ev.Command = CmdFactor
	err := h.engine.Handle(ctx, ev)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Nil(t, h.session())
	assert.Equal(t, failurePrompt().Text, h.lastText())
}

func TestStaleSessionIsReset(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.sessions.Save(h.ctx, &state.Session{
		UserID: telegramID, Flow: state.FlowFactor, Step: state.StepGlucoseStart, Anchor: today,
	}))

	h.must(h.text("6"))
	assert.Nil(t, h.session())
	assert.Contains(t, h.lastText(), "сброшена")
}

func TestTextWithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.text("привет"))
	assert.Nil(t, h.session())
	assert.True(t, h.channel.last().prompt.MainMenu)
}

func TestStatistics(t *testing.T) {
	h := newHarness(t, nil)
	h.must(h.command(CmdMeal))

	h.must(h.command(CmdStatistics))
	opts := h.channel.last().prompt.Options
	require.Len(t, opts, 2)
	assert.Equal(t, CommandOption(CmdStatistics, "today"), opts[0][0].Value)
	assert.NotNil(t, h.session(), "statistics do not touch the session")

	h.seedFactor("2024-03-09", 3.6)
	h.must(h.option(CommandOption(CmdStatistics, string(domain.PeriodYesterday))))
	assert.Contains(t, h.lastText(), "3.60")

	h.must(h.option(CommandOption(CmdStatistics, string(domain.PeriodToday))))
	assert.Contains(t, h.lastText(), "ФЧИ не рассчитан")
}

func TestParseCommandOption(t *testing.T) {
	cmd, arg, ok := ParseCommandOption("cmd:show_statistics:last_7_days")
	require.True(t, ok)
	assert.Equal(t, CmdStatistics, cmd)
	assert.Equal(t, "last_7_days", arg)

	_, _, ok = ParseCommandOption("cmd:unknown")
	assert.False(t, ok)
	_, _, ok = ParseCommandOption("slot:lunch")
	assert.False(t, ok)
}
