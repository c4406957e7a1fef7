package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/scribebot/internal/pipeline"
)

// NewWebSearchHandler returns a handler for the /websearch command.
func NewWebSearchHandler(deps HandlerDeps) bot.HandlerFunc {
	return webSearchHandler{deps}.Handle
}

type webSearchHandler struct {
	deps HandlerDeps
}

func (h webSearchHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	_, args, _ := parseCommand(update.Message.Text)
	h.search(ctx, b, update.Message, args)
}

func (h webSearchHandler) search(ctx context.Context, b *bot.Bot, msg *models.Message, args []string) {
	env := EnvelopeFromMessage(msg)
	query := pipeline.SearchQuery(args)
	m := NewMessenger(b, h.deps.Config.Telegram)

	h.deps.Logger.InfoContext(ctx, "Handling /websearch command", "chat_id", env.ChatID, "user_id", env.UserID, "query", query)
	h.deps.Dispatcher.Go(ctx, "websearch", func(ctx context.Context) {
		h.deps.Pipeline.HandleSearch(ctx, m, env, query)
	})
}
