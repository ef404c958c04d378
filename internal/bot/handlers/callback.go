package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	api    BotAPI
	engine Engine
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api BotAPI, deps Dependencies) *CallbackHandler {
	return &CallbackHandler{api: api, engine: deps.Engine}
}

// Handle answers the query and passes the picked option to the engine
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery, ev flow.Event) error {
	// Answer the callback query first to remove the loading state
	if _, err := h.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.FromContext(ctx).Warn("Failed to answer callback query", "error", err)
	}

	ev.Kind = flow.InputOption
	ev.Option = query.Data
	if query.Message != nil {
		ev.MessageID = query.Message.MessageID
	}
	return h.engine.Handle(ctx, ev)
}
