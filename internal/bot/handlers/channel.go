package handlers

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/bot/flow"
	"github.com/vladimiradmaev/diabetbot/internal/bot/menus"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

// TelegramChannel delivers prompts with one fallback order: edit the message
// the user clicked on, send a new message to the chat, then write to the
// user directly.
type TelegramChannel struct {
	api BotAPI
}

func NewTelegramChannel(api BotAPI) *TelegramChannel {
	return &TelegramChannel{api: api}
}

func (c *TelegramChannel) Send(ctx context.Context, to flow.Target, p flow.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	if to.MessageID != 0 {
		if edit, ok := menus.NewEdit(to.ChatID, to.MessageID, p); ok {
			_, err := c.api.Send(edit)
			if err == nil {
				return nil
			}
			log.Debug("Editing message failed, sending a new one", "message_id", to.MessageID, "error", err)
		}
	}

	_, err := c.api.Send(menus.NewMessage(to.ChatID, p))
	if err == nil {
		return nil
	}
	if to.UserID == 0 || to.UserID == to.ChatID {
		return fmt.Errorf("failed to send message: %w", err)
	}

	log.Warn("Sending to chat failed, writing to the user directly", "chat_id", to.ChatID, "error", err)
	if _, dmErr := c.api.Send(menus.NewMessage(to.UserID, p)); dmErr != nil {
		return fmt.Errorf("failed to send message: %w", dmErr)
	}
	return nil
}
