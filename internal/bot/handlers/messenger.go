package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/pipeline"
)

const (
	defaultSendTimeout = 10 * time.Second
	chatActionTimeout  = 5 * time.Second
)

// messenger implements pipeline.Messenger on top of the Bot API.
type messenger struct {
	b           *bot.Bot
	client      *http.Client
	maxBytes    int64
	sendTimeout time.Duration
}

// NewMessenger returns a pipeline.Messenger that talks to Telegram through b.
func NewMessenger(b *bot.Bot, cfg config.TelegramConfig) pipeline.Messenger {
	m := &messenger{
		b:           b,
		client:      http.DefaultClient,
		maxBytes:    cfg.MaxDownloadBytes,
		sendTimeout: cfg.SendTimeout,
	}
	if m.sendTimeout <= 0 {
		m.sendTimeout = defaultSendTimeout
	}
	if m.maxBytes <= 0 {
		m.maxBytes = config.DefaultTelegramMaxDownloadBytes
	}
	return m
}

func (m *messenger) SendText(ctx context.Context, chatID int64, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	if _, err := m.b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (m *messenger) Typing(ctx context.Context, chatID int64) {
	actionCtx, cancel := context.WithTimeout(ctx, chatActionTimeout)
	defer cancel()
	_, _ = m.b.SendChatAction(actionCtx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
}

// Download resolves fileID and streams the file into dest. Files larger than
// the configured limit fail with pipeline.ErrFileTooLarge.
func (m *messenger) Download(ctx context.Context, fileID, dest string) (err error) {
	if fileID == "" {
		return fmt.Errorf("empty fileID provided")
	}
	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	fileObj, err := m.b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	if fileObj.FilePath == "" {
		return fmt.Errorf("empty file path returned from Telegram")
	}
	if size := int64(fileObj.FileSize); size > m.maxBytes {
		return fmt.Errorf("%w: %d bytes", pipeline.ErrFileTooLarge, size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.b.FileDownloadLink(fileObj), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, m.maxBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if n > m.maxBytes {
		return pipeline.ErrFileTooLarge
	}
	if n == 0 {
		return fmt.Errorf("received empty file data")
	}
	return nil
}
