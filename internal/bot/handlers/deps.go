package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/pipeline"
)

// Pipeline is the message processing surface the handlers drive.
type Pipeline interface {
	HandleMessage(ctx context.Context, m pipeline.Messenger, env pipeline.Envelope)
	HandleSearch(ctx context.Context, m pipeline.Messenger, env pipeline.Envelope, query string)
	HandleContact(ctx context.Context, m pipeline.Messenger, env pipeline.Envelope)
	RegisterUser(ctx context.Context, env pipeline.Envelope) error
}

// Dispatcher runs long handler work off the update loop.
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context))
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Pipeline   Pipeline
	Dispatcher Dispatcher
}
