package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/bot/keyboards"
)

// TextHandler handles text messages
type TextHandler struct {
	engine Engine
}

// NewTextHandler creates a new text handler
func NewTextHandler(deps Dependencies) *TextHandler {
	return &TextHandler{engine: deps.Engine}
}

// Handle processes a text message. Main menu buttons arrive as text and are
// turned back into commands.
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, ev flow.Event) error {
	ev.Kind = flow.InputText
	if cmd, ok := keyboards.CommandForLabel(message.Text); ok {
		ev.Command = cmd
	} else {
		ev.Text = message.Text
	}
	return h.engine.Handle(ctx, ev)
}
