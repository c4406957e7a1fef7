package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/scribebot/internal/pipeline"
)

// NewMessageHandler returns the default handler for updates no command matched.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	if update.Message == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}
	msg := update.Message

	if IsContact(update) {
		contactHandler(h).Handle(ctx, b, update)
		return
	}

	// Commands addressed as /cmd@bot or unknown commands land here.
	if name, args, ok := parseCommand(msg.Text); ok {
		switch name {
		case "websearch":
			webSearchHandler(h).search(ctx, b, msg, args)
		case "start":
			startHandler(h).Handle(ctx, b, update)
		default:
			log.InfoContext(ctx, "Unknown command, sending help", "command", name, "chat_id", msg.Chat.ID)
			sendHelp(ctx, b, h.deps, msg.Chat.ID)
		}
		return
	}

	env := EnvelopeFromMessage(msg)
	kind := pipeline.Classify(env)
	m := NewMessenger(b, h.deps.Config.Telegram)

	log.DebugContext(ctx, "Dispatching message", "kind", kind, "chat_id", env.ChatID, "message_id", env.MessageID)
	h.deps.Dispatcher.Go(ctx, string(kind), func(ctx context.Context) {
		h.deps.Pipeline.HandleMessage(ctx, m, env)
	})
}
