package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/interfaces"
)

// BotAPI is the part of the Telegram client the handlers use
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Engine runs the dialogs for translated updates
type Engine interface {
	Handle(ctx context.Context, ev flow.Event) error
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	UserService interfaces.UserServiceInterface
	Engine      Engine
}
