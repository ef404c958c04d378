package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
)

// PhotoHandler handles photo messages
type PhotoHandler struct {
	api    BotAPI
	engine Engine
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(api BotAPI, deps Dependencies) *PhotoHandler {
	return &PhotoHandler{api: api, engine: deps.Engine}
}

// Handle resolves the largest photo size to a download URL for the engine
func (h *PhotoHandler) Handle(ctx context.Context, message *tgbotapi.Message, ev flow.Event) error {
	photo := message.Photo[len(message.Photo)-1]
	url, err := h.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Не удалось загрузить фото. Пожалуйста, попробуйте ещё раз.")
		if _, sendErr := h.api.Send(msg); sendErr != nil {
			return fmt.Errorf("failed to send photo error message: %w", sendErr)
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	ev.Kind = flow.InputPhoto
	ev.PhotoURL = url
	return h.engine.Handle(ctx, ev)
}
