package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/interfaces"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

// UpdateHandler handles telegram updates and coordinates other handlers
type UpdateHandler struct {
	userService     interfaces.UserServiceInterface
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler
	photoHandler    *PhotoHandler
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(api BotAPI, deps Dependencies) *UpdateHandler {
	return &UpdateHandler{
		userService:     deps.UserService,
		callbackHandler: NewCallbackHandler(api, deps),
		commandHandler:  NewCommandHandler(api, deps),
		textHandler:     NewTextHandler(deps),
		photoHandler:    NewPhotoHandler(api, deps),
	}
}

// Handle processes a telegram update
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	from, chatID := sender(update)
	if from == nil {
		return nil
	}

	user, err := h.userService.RegisterUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	ctx = logger.NewContext(ctx, "user_id", user.ID)

	ev := flow.Event{UserID: user.ID, TelegramID: from.ID, ChatID: chatID}

	if update.CallbackQuery != nil {
		return h.callbackHandler.Handle(ctx, update.CallbackQuery, ev)
	}

	message := update.Message
	switch {
	case message.IsCommand():
		return h.commandHandler.Handle(ctx, message, ev)
	case len(message.Photo) > 0:
		return h.photoHandler.Handle(ctx, message, ev)
	case message.Text != "":
		return h.textHandler.Handle(ctx, message, ev)
	}
	return nil
}

// sender returns who sent the update and the chat to answer in. Callbacks on
// inline messages have no chat, the user's private chat is used instead.
func sender(update tgbotapi.Update) (*tgbotapi.User, int64) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		from := update.CallbackQuery.From
		if update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil {
			return from, update.CallbackQuery.Message.Chat.ID
		}
		return from, from.ID
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		return update.Message.From, update.Message.Chat.ID
	}
	return nil, 0
}
