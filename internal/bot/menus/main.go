package menus

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/bot/keyboards"
)

// NewMessage renders a prompt as a new message. Inline options win over the
// main menu keyboard, Telegram allows only one markup per message.
func NewMessage(chatID int64, p flow.Prompt) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, p.Text)
	switch {
	case len(p.Options) > 0:
		msg.ReplyMarkup = keyboards.Options(p.Options)
	case p.MainMenu:
		msg.ReplyMarkup = keyboards.MainMenu()
	}
	return msg
}

// NewEdit renders a prompt as an edit of an existing message. Edits cannot
// carry a reply keyboard, so prompts that only need the main menu report false.
func NewEdit(chatID int64, messageID int, p flow.Prompt) (tgbotapi.EditMessageTextConfig, bool) {
	if len(p.Options) == 0 && p.MainMenu {
		return tgbotapi.EditMessageTextConfig{}, false
	}
	if len(p.Options) == 0 {
		return tgbotapi.NewEditMessageText(chatID, messageID, p.Text), true
	}
	return tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, p.Text, keyboards.Options(p.Options)), true
}

// BotCommands lists the slash commands shown in the Telegram menu
func BotCommands() tgbotapi.SetMyCommandsConfig {
	return tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: string(flow.CmdStart), Description: "Главное меню"},
		tgbotapi.BotCommand{Command: string(flow.CmdFactor), Description: "Рассчитать ФЧИ"},
		tgbotapi.BotCommand{Command: string(flow.CmdMeal), Description: "Рассчитать УК"},
		tgbotapi.BotCommand{Command: string(flow.CmdStatistics), Description: "Статистика"},
		tgbotapi.BotCommand{Command: string(flow.CmdCalories), Description: "Суточная потребность в энергии"},
		tgbotapi.BotCommand{Command: string(flow.CmdHelp), Description: "Помощь"},
		tgbotapi.BotCommand{Command: string(flow.CmdCancel), Description: "Отменить текущий расчёт"},
	)
}
