package flow

import (
	"fmt"
	"strings"

	"github.com/vladimiradmaev/diabetbot/internal/bot/state"
	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/formula"
	"github.com/vladimiradmaev/diabetbot/internal/services"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

// Option values understood by the steps.
const (
	optAdd         = "add"
	optSkip        = "skip"
	optDone        = "done"
	optFinish      = "finish"
	optEditDay     = "edit_day"
	optUseEstimate = "carbs:estimate"

	optReviewAgain = "review:again"
	optReviewDone  = "review:done"

	optSlotPrefix     = "slot:"
	optOffsetPrefix   = "offset:"
	optGenderPrefix   = "gender:"
	optActivityPrefix = "activity:"
)

const (
	photoProgressText   = "🔍 Анализирую фото, это может занять несколько секунд..."
	photoDisabledNotice = "📷 Распознавание еды по фото не настроено. Введите количество углеводов вручную."
	photoFailedNotice   = "😔 Не удалось распознать еду на фото. Введите количество углеводов вручную."
)

func invalidOption(value string) error {
	return apperrors.NewInvalidFormat(value)
}

func (p Prompt) withNotice(notice string) Prompt {
	p.Text = notice + "\n\n" + p.Text
	return p
}

func cancelRow() []Option {
	return row(Option{Label: "❌ Отмена", Value: CommandOption(CmdCancel, "")})
}

// question is a prompt inside a flow; it always offers cancel.
func question(text string, rows ...[]Option) Prompt {
	return Prompt{Text: text, Options: append(rows, cancelRow())}
}

func wrongInputNotice(spec stepSpec) string {
	if spec.accepts(InputOption) && !spec.accepts(InputText) {
		return "👆 Пожалуйста, выберите вариант на кнопках."
	}
	return "✏️ Пожалуйста, ответьте сообщением."
}

func insulin(v float64) string {
	return fmt.Sprintf("%.1f ед", v)
}

// General prompts

func welcomePrompt() Prompt {
	return Prompt{
		Text: `🤖 ДиаБот — помощник для подбора доз инсулина

📈 Рассчитаю фактор чувствительности к инсулину (ФЧИ) по суммарному инсулину за три дня
🍽️ Рассчитаю углеводный коэффициент (УК) для приёма пищи
📊 Покажу статистику по ФЧИ и УК
🔥 Оценю суточную потребность ребёнка в энергии

⚠️ Важно: Это справочная информация, всегда консультируйтесь с врачом!

Выберите действие:`,
		MainMenu: true,
	}
}

func helpPrompt() Prompt {
	return Prompt{
		Text: `ℹ️ Как пользоваться ботом

📈 ФЧИ — 100, делённое на средний суммарный инсулин за три предыдущих дня. Если данных за какой-то день нет, бот спросит их.
🍽️ УК — рассчитывается после еды по сахару до и после, углеводам, белкам, жирам и введённому инсулину. Нужен сохранённый ФЧИ.
📷 На шаге углеводов можно прислать фото еды.
❌ /cancel — прервать текущий расчёт.`,
		MainMenu: true,
	}
}

func cancelledPrompt() Prompt {
	return Prompt{Text: "❌ Действие отменено.", MainMenu: true}
}

func idlePrompt() Prompt {
	return Prompt{Text: "Выберите действие в меню 👇", MainMenu: true}
}

func resetPrompt() Prompt {
	return Prompt{Text: "⚠️ Сессия устарела и была сброшена. Начните заново из меню.", MainMenu: true}
}

func failurePrompt() Prompt {
	return Prompt{Text: "😔 Произошла ошибка. Попробуйте ещё раз чуть позже."}
}

func missingFactorPrompt() Prompt {
	return Prompt{
		Text:     "⚠️ Сначала нужно рассчитать ФЧИ. Углеводный коэффициент без него не считается.",
		Options:  [][]Option{row(Option{Label: "📈 Рассчитать ФЧИ", Value: CommandOption(CmdFactor, "")})},
		MainMenu: true,
	}
}

// Sensitivity factor

func askDayTotal(s *state.Session) Prompt {
	idx := dayIndex(s.Step)
	day := utils.SensitivityDays(s.Anchor)[idx]
	return question(fmt.Sprintf("📅 Нет данных за %s (день %d из 3).\n\nВведите суммарное количество инсулина за этот день в единицах:",
		utils.FormatDay(day), idx+1))
}

func factorSummary(days [3]string, totals [3]float64) string {
	var b strings.Builder
	b.WriteString("💉 Суммарный инсулин:\n")
	for i, day := range days {
		if totals[i] > 0 {
			fmt.Fprintf(&b, "• %s: %s\n", utils.FormatDay(day), insulin(totals[i]))
		} else {
			fmt.Fprintf(&b, "• %s: нет данных\n", utils.FormatDay(day))
		}
	}
	return b.String()
}

func factorResultPrompt(days [3]string, totals [3]float64, value float64) Prompt {
	return Prompt{
		Text: fmt.Sprintf("✅ ФЧИ рассчитан: %.2f\n\n%s", value, factorSummary(days, totals)),
		Options: [][]Option{
			row(Option{Label: "✏️ Исправить данные за день", Value: CommandOption(CmdCorrection, "")}),
			row(Option{Label: "🔁 Изменить день и пересчитать", Value: CommandOption(CmdEdit, "")}),
		},
		MainMenu: true,
	}
}

func askCorrectionDate(*state.Session) Prompt {
	return question("📅 За какую дату исправить суммарный инсулин? Введите дату в формате ДД.ММ.ГГГГ:")
}

func askCorrectionAmount(s *state.Session) Prompt {
	return question(fmt.Sprintf("💉 Введите суммарное количество инсулина за %s:", utils.FormatDay(s.Answers.EditDay)))
}

func correctionDonePrompt(day string, amount float64) Prompt {
	return Prompt{
		Text: fmt.Sprintf("✅ Данные за %s сохранены: %s.\n\nЗапустите расчёт ФЧИ заново, чтобы учесть исправление.",
			utils.FormatDay(day), insulin(amount)),
		Options:  [][]Option{row(Option{Label: "📈 Рассчитать ФЧИ", Value: CommandOption(CmdFactor, "")})},
		MainMenu: true,
	}
}

func askEditDate(*state.Session) Prompt {
	return question("📅 Данные за какую дату изменить? Введите дату в формате ДД.ММ.ГГГГ:")
}

func askEditValue(s *state.Session) Prompt {
	current := "нет данных"
	if s.Answers.EditPrevious > 0 {
		current = insulin(s.Answers.EditPrevious)
	}
	return question(fmt.Sprintf("📅 %s\nТекущее значение: %s\n\nВведите новое суммарное количество инсулина:",
		utils.FormatDay(s.Answers.EditDay), current))
}

func editDonePrompt(day string, amount float64, value *float64) Prompt {
	text := fmt.Sprintf("✅ Данные за %s обновлены: %s.", utils.FormatDay(day), insulin(amount))
	if value != nil {
		text += fmt.Sprintf("\n🔁 ФЧИ пересчитан: %.2f", *value)
	} else {
		text += "\nℹ️ Для пересчёта ФЧИ не хватает данных за три дня."
	}
	return Prompt{Text: text}
}

func factorLine(factor float64) string {
	if factor > 0 {
		return fmt.Sprintf("📈 ФЧИ: %.2f", factor)
	}
	return "📈 ФЧИ ещё не рассчитан"
}

func askFactorReview(s *state.Session) Prompt {
	return question(fmt.Sprintf("%s\n\n%s", factorLine(s.Answers.Factor), factorSummary(utils.SensitivityDays(s.Anchor), s.Answers.Totals)),
		row(Option{Label: "✏️ Изменить ещё день", Value: optReviewAgain}),
		row(Option{Label: "✅ Готово", Value: optReviewDone}),
	)
}

func reviewDonePrompt(factor float64) Prompt {
	return Prompt{Text: "✅ Готово.\n" + factorLine(factor), MainMenu: true}
}

// Meal coefficient

func askMealSlot(*state.Session) Prompt {
	opts := make([]Option, 0, len(domain.MealSlots))
	for _, slot := range domain.MealSlots {
		opts = append(opts, Option{Label: slot.Label(), Value: optSlotPrefix + string(slot)})
	}
	return question("🍽️ Для какого приёма пищи рассчитать УК?", opts[:2], opts[2:])
}

func askGlucoseStart(*state.Session) Prompt {
	return question("🩸 Введите сахар крови перед едой (ммоль/л):")
}

func askPauseMinutes(*state.Session) Prompt {
	return question("⏱️ Сколько минут прошло между уколом и едой?")
}

func askCarbsPrimary(s *state.Session) Prompt {
	text := "🍞 Введите количество углеводов основного блюда в граммах.\n📷 Или пришлите фото еды."
	if s.Answers.CarbEstimate != nil {
		return question(text, row(Option{
			Label: fmt.Sprintf("✅ Использовать %.1f г", *s.Answers.CarbEstimate),
			Value: optUseEstimate,
		}))
	}
	return question(text)
}

func carbEstimateNotice(est *services.CarbEstimate) string {
	confidence := map[string]string{"high": "высокая", "medium": "средняя", "low": "низкая"}[est.Confidence]
	text := fmt.Sprintf("🤖 По фото примерно %.1f г углеводов (уверенность: %s).", est.Carbs, confidence)
	if len(est.FoodItems) > 0 {
		text += "\n🍽️ " + strings.Join(est.FoodItems, ", ")
	}
	return text
}

func askCarbsSecondary(*state.Session) Prompt {
	return question("🍽️ Было ли второе блюдо? Введите его углеводы в граммах или выберите вариант:",
		row(Option{Label: "➕ Добавить", Value: optAdd}, Option{Label: "⏭️ Пропустить", Value: optSkip}))
}

func askProtein(*state.Session) Prompt {
	return question("🥩 Введите количество белков в граммах:",
		row(Option{Label: "⏭️ Пропустить", Value: optSkip}))
}

func askFat(*state.Session) Prompt {
	return question("🧈 Введите количество жиров в граммах:",
		row(Option{Label: "⏭️ Пропустить", Value: optSkip}))
}

func askFoodInsulin(*state.Session) Prompt {
	return question("💉 Сколько единиц инсулина введено на еду?")
}

func injectionLines(injections []state.Injection) string {
	var b strings.Builder
	for _, inj := range injections {
		fmt.Fprintf(&b, "• через %d мин: %s → учтено %.2f ед\n",
			inj.OffsetMinutes, insulin(inj.Dose), formula.CorrectedDose(inj.Dose, inj.OffsetMinutes))
	}
	return b.String()
}

func askInjections(s *state.Session) Prompt {
	text := "💉 Были ли подколки после еды?"
	if len(s.Answers.Injections) > 0 {
		text = "💉 Подколки:\n" + injectionLines(s.Answers.Injections) + "\nДобавить ещё?"
	}
	return question(text,
		row(Option{Label: "➕ Добавить подколку", Value: optAdd}, Option{Label: "✅ Готово", Value: optDone}))
}

func askInjectionTime(*state.Session) Prompt {
	opts := make([]Option, 0, 4)
	for h := 1; h <= 4; h++ {
		opts = append(opts, Option{Label: fmt.Sprintf("%d ч", h), Value: fmt.Sprintf("%s%d", optOffsetPrefix, h*60)})
	}
	return question("⏱️ Через сколько времени после еды была подколка? Выберите или введите минуты:", opts)
}

func askInjectionDose(s *state.Session) Prompt {
	return question(fmt.Sprintf("💉 Сколько единиц подколото через %d мин?", s.Answers.PendingOffset))
}

func askGlucoseEnd(*state.Session) Prompt {
	return question("🩸 Введите сахар крови после еды (ммоль/л):")
}

func optionalGrams(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f г", *v)
}

func askConfirmation(s *state.Session) Prompt {
	a := s.Answers
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s, %s\n\n", a.Slot.Label(), utils.FormatDay(s.Anchor))
	fmt.Fprintf(&b, "🩸 Сахар: %.1f → %.1f ммоль/л\n", a.GlucoseStart, a.GlucoseEnd)
	fmt.Fprintf(&b, "⏱️ Пауза: %d мин\n", a.PauseMinutes)
	fmt.Fprintf(&b, "🍞 Углеводы: %.1f г + %.1f г\n", a.CarbsPrimary, a.CarbsSecondary)
	fmt.Fprintf(&b, "🥩 Белки: %s, 🧈 жиры: %s\n", optionalGrams(a.Protein), optionalGrams(a.Fat))
	fmt.Fprintf(&b, "💉 На еду: %s\n", insulin(a.FoodInsulin))
	if len(a.Injections) > 0 {
		b.WriteString(injectionLines(a.Injections))
	}
	fmt.Fprintf(&b, "\n%s\n\n%s", factorLine(a.Factor), factorSummary(utils.SensitivityDays(s.Anchor), a.Totals))

	return question(b.String(),
		row(Option{Label: "✅ Рассчитать УК", Value: optFinish}),
		row(Option{Label: "✏️ Изменить данные дня", Value: optEditDay}),
	)
}

func mealResultPrompt(meal *database.MealRecord) Prompt {
	text := fmt.Sprintf("✅ УК (%s): %.3f\n\n📈 ФЧИ: %.2f\n🩸 Сахар: %.1f → %.1f ммоль/л\n💉 Инсулин: %s на еду + %.2f ед подколок",
		meal.Slot.Label(), meal.Coefficient, meal.Factor, meal.GlucoseStart, meal.GlucoseEnd,
		insulin(meal.FoodInsulin), meal.SupplementalInsulin)
	if meal.Coefficient == 0 {
		text += "\n\nℹ️ Углеводов не было, коэффициент не рассчитывается."
	}
	return Prompt{Text: text, MainMenu: true}
}

// Energy requirement

func askGender(*state.Session) Prompt {
	return question("👤 Выберите пол ребёнка:",
		row(Option{Label: "👦 Мальчик", Value: optGenderPrefix + string(formula.Male)},
			Option{Label: "👧 Девочка", Value: optGenderPrefix + string(formula.Female)}))
}

func askAgeYears(*state.Session) Prompt {
	return question("🎂 Сколько полных лет ребёнку? (0–18)")
}

func askAgeMonths(*state.Session) Prompt {
	return question("🍼 Сколько полных месяцев? (0–12)")
}

func askWeight(*state.Session) Prompt {
	return question("⚖️ Введите вес в килограммах:")
}

func askHeight(*state.Session) Prompt {
	return question("📏 Введите рост в сантиметрах:")
}

var activityLabels = [4]string{"🛋️ Малоподвижный", "🚶 Низкая активность", "🏃 Активный", "⚡ Очень активный"}

func askActivity(s *state.Session) Prompt {
	g := formula.Gender(s.Answers.Gender)
	rows := make([][]Option, 0, len(activityLabels))
	for level, label := range activityLabels {
		rows = append(rows, row(Option{
			Label: fmt.Sprintf("%s (%.2f)", label, formula.ActivityCoefficient(g, formula.ActivityLevel(level))),
			Value: fmt.Sprintf("%s%d", optActivityPrefix, level),
		}))
	}
	return question("🏃 Выберите уровень физической активности:", rows...)
}

func caloriesResultPrompt(in formula.EnergyInput, kcal float64) Prompt {
	age := fmt.Sprintf("%d лет", in.AgeYears)
	if in.AgeYears == 0 {
		age = fmt.Sprintf("%d мес", in.AgeMonths)
	}
	return Prompt{
		Text: fmt.Sprintf("🔥 Суточная потребность в энергии: %.0f ккал\n\n👤 Возраст: %s, вес %.1f кг, рост %.0f см",
			kcal, age, in.WeightKg, in.HeightCm),
		MainMenu: true,
	}
}

// Statistics

func periodPrompt() Prompt {
	opts := make([]Option, 0, len(domain.StatsPeriods))
	for _, p := range domain.StatsPeriods {
		opts = append(opts, Option{Label: p.Label(), Value: CommandOption(CmdStatistics, string(p))})
	}
	return Prompt{Text: "📊 За какой период показать статистику?", Options: [][]Option{opts[:2], opts[2:]}}
}

func reportPrompt(r *services.Report) Prompt {
	var b strings.Builder
	if r.SingleDay() {
		fmt.Fprintf(&b, "📊 Статистика: %s (%s)\n\n", r.Period.Label(), utils.FormatDay(r.Start))
		if r.Factor != nil {
			fmt.Fprintf(&b, "📈 ФЧИ: %.2f\n", *r.Factor)
		} else {
			b.WriteString("📈 ФЧИ не рассчитан\n")
		}
		if r.Insulin > 0 {
			fmt.Fprintf(&b, "💉 Инсулин за день: %s\n", insulin(r.Insulin))
		} else {
			b.WriteString("💉 Инсулин за день: нет данных\n")
		}
		if len(r.Slots) > 0 {
			b.WriteString("\n🍽️ УК:\n")
			for _, st := range r.Slots {
				fmt.Fprintf(&b, "• %s: %.3f\n", st.Slot.Label(), st.Latest)
			}
		}
		return Prompt{Text: b.String(), MainMenu: true}
	}

	fmt.Fprintf(&b, "📊 Статистика: %s (%s – %s)\n\n", r.Period.Label(), utils.FormatDay(r.Start), utils.FormatDay(r.End))
	if r.Factors.Count > 0 {
		fmt.Fprintf(&b, "📈 ФЧИ: расчётов %d, среднее %.2f (мин %.2f, макс %.2f)\n",
			r.Factors.Count, r.Factors.Mean, r.Factors.Min, r.Factors.Max)
	} else {
		b.WriteString("📈 ФЧИ за период не рассчитывался\n")
	}
	if len(r.Slots) > 0 {
		b.WriteString("\n🍽️ УК:\n")
		for _, st := range r.Slots {
			fmt.Fprintf(&b, "• %s: %d, среднее %.3f\n", st.Slot.Label(), st.Count, st.Mean)
		}
	} else {
		b.WriteString("🍽️ Расчётов УК за период нет\n")
	}
	return Prompt{Text: b.String(), MainMenu: true}
}
