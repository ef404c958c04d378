package keyboards

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
)

// Main menu button labels
const (
	LabelFactor     = "📈 Рассчитать ФЧИ"
	LabelMeal       = "🍽️ Рассчитать УК"
	LabelStatistics = "📊 Статистика"
	LabelCalories   = "🔥 Калории"
	LabelHelp       = "ℹ️ Помощь"
	LabelCancel     = "❌ Отмена"
)

var labelCommands = map[string]flow.Command{
	LabelFactor:     flow.CmdFactor,
	LabelMeal:       flow.CmdMeal,
	LabelStatistics: flow.CmdStatistics,
	LabelCalories:   flow.CmdCalories,
	LabelHelp:       flow.CmdHelp,
	LabelCancel:     flow.CmdCancel,
}

// CommandForLabel maps a main menu button press back to its command
func CommandForLabel(text string) (flow.Command, bool) {
	cmd, ok := labelCommands[strings.TrimSpace(text)]
	return cmd, ok
}

// MainMenu creates the persistent main menu keyboard
func MainMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelFactor),
			tgbotapi.NewKeyboardButton(LabelMeal),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelStatistics),
			tgbotapi.NewKeyboardButton(LabelCalories),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LabelHelp),
			tgbotapi.NewKeyboardButton(LabelCancel),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// Options creates an inline keyboard with one button per option
func Options(rows [][]flow.Option) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, opt := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Value))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
