package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewContactHandler returns a handler for shared contacts.
func NewContactHandler(deps HandlerDeps) bot.HandlerFunc {
	return contactHandler{deps}.Handle
}

// IsContact matches messages carrying a shared contact.
func IsContact(update *models.Update) bool {
	return update.Message != nil && update.Message.Contact != nil
}

type contactHandler struct {
	deps HandlerDeps
}

func (h contactHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !IsContact(update) {
		return
	}
	env := EnvelopeFromMessage(update.Message)
	m := NewMessenger(b, h.deps.Config.Telegram)

	h.deps.Logger.InfoContext(ctx, "Handling shared contact", "chat_id", env.ChatID, "user_id", env.UserID)
	h.deps.Dispatcher.Go(ctx, "contact", func(ctx context.Context) {
		h.deps.Pipeline.HandleContact(ctx, m, env)
	})
}
