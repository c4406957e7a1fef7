// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RequireSender creates a middleware that drops updates without a message or
// a sender, such as channel posts and edits. Records are keyed by sender, so
// these updates have nothing to attach to.
func RequireSender(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				deps.Logger.With("middleware", "RequireSender").DebugContext(ctx, "Dropping update without message sender", "update_id", update.ID)
				return
			}
			next(ctx, bot, update)
		}
	}
}
