package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/sentiment"
)

// processText scores the message and generates a reply concurrently, stores
// the turn and answers with the reply followed by the sentiment marker. When
// generation fails the apology is sent and stored as the response instead.
func (p *Pipeline) processText(ctx context.Context, log *slog.Logger, m Messenger, env Envelope) {
	p.ensureUser(ctx, log, env)
	m.Typing(ctx, env.ChatID)

	var (
		label    sentiment.Label
		reply    string
		genError error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		label = sentiment.Classify(p.deps.Sentiment, env.Text)
		return nil
	})
	g.Go(func() error {
		reply, genError = p.deps.Gemini.GenerateText(gCtx, env.Text)
		return nil
	})
	_ = g.Wait()

	text := reply + " " + label.Marker()
	if genError != nil {
		log.WarnContext(ctx, "Reply generation failed, sending apology", "error", genError)
		reply = p.deps.Messages.GenerationError
		text = reply
	}
	log.DebugContext(ctx, "Text analyzed", "sentiment", label)

	turn := &database.ChatTurn{
		UserID:    env.UserID,
		ChatID:    env.ChatID,
		MessageID: p.recordKey(env),
		Query:     env.Text,
		Response:  reply,
		Sentiment: string(label),
		Timestamp: time.Now().UTC(),
	}
	p.persist(ctx, log, "chat turn", func(ctx context.Context) (bool, error) {
		return p.deps.Store.InsertChatTurn(ctx, turn)
	})

	p.reply(ctx, log, m, env.ChatID, text)
}
