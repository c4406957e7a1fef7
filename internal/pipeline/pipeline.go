package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/gemini"
	"github.com/edgard/scribebot/internal/ocr"
	"github.com/edgard/scribebot/internal/search"
	"github.com/edgard/scribebot/internal/sentiment"
)

const (
	defaultDBTimeout       = 5 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	defaultSendTimeout     = 10 * time.Second
)

// ErrFileTooLarge is returned by a Messenger when a download exceeds its limit.
var ErrFileTooLarge = errors.New("file exceeds download limit")

// Messenger sends messages to and fetches files from the chat platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	Download(ctx context.Context, fileID, dest string) error
	Typing(ctx context.Context, chatID int64)
}

// TextExtractor turns downloaded files into text.
type TextExtractor interface {
	ExtractImage(ctx context.Context, path string) string
	ExtractDocument(ctx context.Context, path, filename string) string
}

// Deps holds the collaborators of a Pipeline.
type Deps struct {
	Logger    *slog.Logger
	Store     database.Store
	Gemini    gemini.Client
	Sentiment sentiment.Analyzer
	Search    search.Searcher
	OCR       TextExtractor
	Scratch   *ocr.Scratch
	Messages  config.MessagesConfig

	// MaxLinks caps the links persisted with a search record.
	MaxLinks int
	// PerMessage keys records by message; false keeps one record per user and chat.
	PerMessage      bool
	DBTimeout       time.Duration
	DownloadTimeout time.Duration
	// SendTimeout bounds each reply. Replies and record writes run after the
	// job deadline too, so a flow that timed out still answers and persists.
	SendTimeout time.Duration
}

// Pipeline processes messages. It is safe for concurrent use.
type Pipeline struct {
	deps Deps
	log  *slog.Logger
}

// New returns a Pipeline using deps.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.DBTimeout <= 0 {
		deps.DBTimeout = defaultDBTimeout
	}
	if deps.DownloadTimeout <= 0 {
		deps.DownloadTimeout = defaultDownloadTimeout
	}
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = defaultSendTimeout
	}
	if deps.MaxLinks <= 0 {
		deps.MaxLinks = 3
	}
	return &Pipeline{deps: deps, log: deps.Logger.With("component", "pipeline")}
}

// HandleMessage classifies env and runs the matching flow. Every branch ends
// with at least one message sent to the chat.
func (p *Pipeline) HandleMessage(ctx context.Context, m Messenger, env Envelope) {
	kind := Classify(env)
	log := p.log.With("kind", kind, "chat_id", env.ChatID, "user_id", env.UserID, "message_id", env.MessageID)
	log.DebugContext(ctx, "Message classified")

	switch kind {
	case KindText:
		p.processText(ctx, log, m, env)
	case KindPhoto, KindDocument:
		p.processMedia(ctx, log, m, env, kind)
	default:
		p.reply(ctx, log, m, env.ChatID, p.deps.Messages.Unsupported)
	}
}

// RegisterUser records the sender unless already known.
func (p *Pipeline) RegisterUser(ctx context.Context, env Envelope) error {
	dbCtx, cancel := detached(ctx, p.deps.DBTimeout)
	defer cancel()

	_, err := p.deps.Store.EnsureUser(dbCtx, userFromEnvelope(env))
	return err
}

// HandleContact stores the shared phone number and thanks the user.
func (p *Pipeline) HandleContact(ctx context.Context, m Messenger, env Envelope) {
	log := p.log.With("kind", KindContact, "chat_id", env.ChatID, "user_id", env.UserID)

	if env.Contact == nil || strings.TrimSpace(env.Contact.PhoneNumber) == "" {
		log.WarnContext(ctx, "Contact message without phone number")
		p.reply(ctx, log, m, env.ChatID, p.deps.Messages.ContactUnreadable)
		return
	}

	dbCtx, cancel := detached(ctx, p.deps.DBTimeout)
	defer cancel()

	if err := p.deps.Store.SetPhoneNumber(dbCtx, userFromEnvelope(env), env.Contact.PhoneNumber); err != nil {
		log.ErrorContext(ctx, "Failed to save phone number", "error", err)
	}
	p.reply(ctx, log, m, env.ChatID, p.deps.Messages.ContactThanks)
}

// ensureUser registers the sender before any record referencing them is
// written. Failures are logged; the insert that follows reports its own error.
func (p *Pipeline) ensureUser(ctx context.Context, log *slog.Logger, env Envelope) {
	if err := p.RegisterUser(ctx, env); err != nil {
		log.ErrorContext(ctx, "Failed to register user", "error", err)
	}
}

// recordKey is the message component of a record's dedup key.
func (p *Pipeline) recordKey(env Envelope) int64 {
	if p.deps.PerMessage {
		return env.MessageID
	}
	return 0
}

func (p *Pipeline) reply(ctx context.Context, log *slog.Logger, m Messenger, chatID int64, text string) {
	sendCtx, cancel := detached(ctx, p.deps.SendTimeout)
	defer cancel()

	if err := m.SendText(sendCtx, chatID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}

// persist runs a conditional insert with the database timeout and logs the outcome.
func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, what string, insert func(ctx context.Context) (bool, error)) {
	dbCtx, cancel := detached(ctx, p.deps.DBTimeout)
	defer cancel()

	inserted, err := insert(dbCtx)
	switch {
	case err != nil:
		log.ErrorContext(ctx, "Failed to persist "+what, "error", err)
	case !inserted:
		log.InfoContext(ctx, "Record already stored, skipping "+what)
	default:
		log.DebugContext(ctx, "Persisted "+what)
	}
}

// detached derives a context that survives ctx's cancellation and deadline
// but keeps its values, bounded by timeout.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func userFromEnvelope(env Envelope) *database.User {
	return &database.User{
		UserID:    env.UserID,
		ChatID:    env.ChatID,
		FirstName: env.FirstName,
		Username:  env.Username,
	}
}

func formatOne(format, value string) string {
	return fmt.Sprintf(format, value)
}
