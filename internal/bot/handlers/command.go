package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	api    BotAPI
	engine Engine
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api BotAPI, deps Dependencies) *CommandHandler {
	return &CommandHandler{api: api, engine: deps.Engine}
}

// Handle processes a command message. "/show_statistics today" passes the
// period as the command argument.
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, ev flow.Event) error {
	cmd := flow.Command(message.Command())
	logger.FromContext(ctx).Info("Handling command", "command", cmd)

	if !cmd.Valid() {
		return h.handleUnknownCommand(message.Chat.ID)
	}

	ev.Kind = flow.InputText
	ev.Command = cmd
	ev.Arg = strings.TrimSpace(message.CommandArguments())
	return h.engine.Handle(ctx, ev)
}

// handleUnknownCommand handles unknown commands
func (h *CommandHandler) handleUnknownCommand(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Неизвестная команда. Используйте /help для просмотра доступных команд.")
	_, err := h.api.Send(msg)
	return err
}
