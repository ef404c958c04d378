package domain

// InsulinCategory tells what an insulin amount was given for. Daily totals
// typed by the user are food insulin; correction rows come from post-meal
// injections.
type InsulinCategory string

const (
	CategoryFood       InsulinCategory = "food"
	CategoryCorrection InsulinCategory = "correction"
)

// InsulinOrigin tells who asserted an insulin amount. Manual amounts are a
// user-stated daily total and take precedence over automatic ones, which
// are written once per completed meal.
type InsulinOrigin string

const (
	OriginManual    InsulinOrigin = "manual"
	OriginAutomatic InsulinOrigin = "automatic"
)

// MealSlot is the meal of the day a MealRecord belongs to.
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotSnack     MealSlot = "snack"
	SlotDinner    MealSlot = "dinner"
)

// MealSlots lists slots in display order.
var MealSlots = []MealSlot{SlotBreakfast, SlotLunch, SlotSnack, SlotDinner}

var slotLabels = map[MealSlot]string{
	SlotBreakfast: "Завтрак",
	SlotLunch:     "Обед",
	SlotSnack:     "Полдник",
	SlotDinner:    "Ужин",
}

// Label returns the Russian name shown to users.
func (s MealSlot) Label() string {
	if l, ok := slotLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of MealSlots.
func (s MealSlot) Valid() bool {
	_, ok := slotLabels[s]
	return ok
}

// StatsPeriod selects the range covered by the statistics command.
type StatsPeriod string

const (
	PeriodToday     StatsPeriod = "today"
	PeriodYesterday StatsPeriod = "yesterday"
	PeriodWeek      StatsPeriod = "last_7_days"
	PeriodMonth     StatsPeriod = "last_30_days"
)

// StatsPeriods lists periods in display order.
var StatsPeriods = []StatsPeriod{PeriodToday, PeriodYesterday, PeriodWeek, PeriodMonth}

var periodLabels = map[StatsPeriod]string{
	PeriodToday:     "Сегодня",
	PeriodYesterday: "Вчера",
	PeriodWeek:      "7 дней",
	PeriodMonth:     "30 дней",
}

func (p StatsPeriod) Label() string {
	if l, ok := periodLabels[p]; ok {
		return l
	}
	return string(p)
}

func (p StatsPeriod) Valid() bool {
	_, ok := periodLabels[p]
	return ok
}

// Span returns how many days back from today the period starts and how
// many days it covers.
func (p StatsPeriod) Span() (offset, days int) {
	switch p {
	case PeriodYesterday:
		return -1, 1
	case PeriodWeek:
		return -6, 7
	case PeriodMonth:
		return -29, 30
	default:
		return 0, 1
	}
}
