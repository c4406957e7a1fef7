package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/pipeline"
)

const testToken = "123456:TEST-token"

type apiCall struct {
	method string
	fields map[string]string
}

// fakeAPI is a minimal Bot API server recording every call.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	file     string
	fileSize int64
	getFile  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		_, _ = io.WriteString(w, f.file)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	fields := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		for k, v := range raw {
			b, _ := json.Marshal(v)
			fields[k] = strings.Trim(string(b), `"`)
		}
	} else if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, fields: fields})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":100,"type":"private"}}}`)
	case "getFile":
		if !f.getFile {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"file_id": "f1", "file_unique_id": "u1", "file_size": f.fileSize, "file_path": "photos/f1.jpg",
			},
		})
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeAPI) sent(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestBot(t *testing.T, api *fakeAPI) *bot.Bot {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := bot.New(testToken, bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return b
}

type fakePipeline struct {
	mu         sync.Mutex
	messages   []pipeline.Envelope
	searches   []string
	contacts   []pipeline.Envelope
	registered []pipeline.Envelope
}

func (f *fakePipeline) HandleMessage(_ context.Context, _ pipeline.Messenger, env pipeline.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, env)
}

func (f *fakePipeline) HandleSearch(_ context.Context, _ pipeline.Messenger, _ pipeline.Envelope, query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
}

func (f *fakePipeline) HandleContact(_ context.Context, _ pipeline.Messenger, env pipeline.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, env)
}

func (f *fakePipeline) RegisterUser(_ context.Context, env pipeline.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, env)
	return nil
}

// syncDispatcher runs jobs inline.
type syncDispatcher struct{ names []string }

func (d *syncDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	d.names = append(d.names, name)
	fn(ctx)
}

func newDeps() (HandlerDeps, *fakePipeline, *syncDispatcher) {
	p := &fakePipeline{}
	d := &syncDispatcher{}
	cfg := &config.Config{
		Telegram: config.TelegramConfig{MaxDownloadBytes: 1024},
		Messages: config.DefaultMessages,
	}
	return HandlerDeps{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:     cfg,
		Pipeline:   p,
		Dispatcher: d,
	}, p, d
}

func message(text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   55,
			Chat: models.Chat{ID: 100, Type: "private"},
			From: &models.User{ID: 42, FirstName: "Ada", Username: "ada"},
			Text: text,
		},
	}
}

func TestStartHandler(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	b := newTestBot(t, api)
	deps, p, _ := newDeps()

	NewStartHandler(deps)(t.Context(), b, message("/start"))

	require.Len(t, p.registered, 1)
	assert.Equal(t, int64(42), p.registered[0].UserID)

	sent := api.sent("sendMessage")
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome! Please share your contact:", sent[0].fields["text"])
	assert.Contains(t, sent[0].fields["reply_markup"], "request_contact")
	assert.Contains(t, sent[0].fields["reply_markup"], "one_time_keyboard")
}

func TestMessageHandlerRouting(t *testing.T) {
	t.Parallel()

	t.Run("plain text goes to the pipeline", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{})
		deps, p, d := newDeps()

		NewMessageHandler(deps)(t.Context(), b, message("I love this!"))

		require.Len(t, p.messages, 1)
		assert.Equal(t, "I love this!", p.messages[0].Text)
		assert.Equal(t, int64(55), p.messages[0].MessageID)
		assert.Equal(t, []string{"text"}, d.names)
	})

	t.Run("addressed websearch", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{})
		deps, p, _ := newDeps()

		NewMessageHandler(deps)(t.Context(), b, message("/websearch@scribebot rust   lang"))

		assert.Equal(t, []string{"rust lang"}, p.searches)
		assert.Empty(t, p.messages)
	})

	t.Run("unknown command gets help", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		b := newTestBot(t, api)
		deps, p, _ := newDeps()

		NewMessageHandler(deps)(t.Context(), b, message("/frobnicate now"))

		assert.Empty(t, p.messages)
		sent := api.sent("sendMessage")
		require.Len(t, sent, 1)
		assert.Equal(t, config.DefaultMessages.Help, sent[0].fields["text"])
	})

	t.Run("contact", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{})
		deps, p, _ := newDeps()

		update := message("")
		update.Message.Contact = &models.Contact{PhoneNumber: "+15550100", UserID: 42}
		NewMessageHandler(deps)(t.Context(), b, update)

		require.Len(t, p.contacts, 1)
		assert.Equal(t, "+15550100", p.contacts[0].Contact.PhoneNumber)
		assert.Empty(t, p.messages)
	})
}

func TestWebSearchHandler(t *testing.T) {
	t.Parallel()
	b := newTestBot(t, &fakeAPI{})
	deps, p, _ := newDeps()

	NewWebSearchHandler(deps)(t.Context(), b, message("/websearch rust programming"))
	NewWebSearchHandler(deps)(t.Context(), b, message("/websearch"))

	assert.Equal(t, []string{"rust programming", ""}, p.searches)
}

func TestRequireSender(t *testing.T) {
	t.Parallel()
	deps, _, _ := newDeps()

	called := false
	h := RequireSender(deps)(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(t.Context(), nil, &models.Update{ID: 1})
	update := message("hi")
	update.Message.From = nil
	h(t.Context(), nil, update)
	assert.False(t, called)

	h(t.Context(), nil, message("hi"))
	assert.True(t, called)
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	deps, _, _ := newDeps()

	registered := RegisterAllCommands(deps)

	assert.Contains(t, registered, "/start")
	assert.Contains(t, registered, "/help")
	assert.Contains(t, registered, "/websearch")
	require.Contains(t, registered, "contact")
	assert.NotNil(t, registered["contact"].MatchFunc)

	var names []string
	for _, c := range BotCommands(registered) {
		names = append(names, c.Command)
	}
	assert.Equal(t, []string{"start", "help", "websearch"}, names)
}

func TestEnvelopeFromMessage(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		ID:   9,
		Chat: models.Chat{ID: -100},
		From: &models.User{ID: 7, FirstName: "Lin", Username: "lin"},
		Photo: []models.PhotoSize{
			{FileID: "s", Width: 90, Height: 90},
			{FileID: "l", Width: 800, Height: 600},
		},
		Document: &models.Document{FileID: "d", FileName: "a.pdf", MimeType: "application/pdf"},
		Voice:    &models.Voice{FileID: "v"},
	}

	env := EnvelopeFromMessage(msg)

	assert.Equal(t, int64(9), env.MessageID)
	assert.Equal(t, int64(-100), env.ChatID)
	assert.Equal(t, int64(7), env.UserID)
	assert.Equal(t, "lin", env.Username)
	assert.Len(t, env.Photos, 2)
	assert.Equal(t, "a.pdf", env.Document.FileName)
	assert.True(t, env.HasVoice)
	assert.False(t, env.HasAudio)
	assert.Equal(t, pipeline.KindPhoto, pipeline.Classify(env))
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{text: "/websearch go generics", name: "websearch", args: []string{"go", "generics"}, ok: true},
		{text: "/WebSearch@ScribeBot x", name: "websearch", args: []string{"x"}, ok: true},
		{text: "/start", name: "start", args: []string{}, ok: true},
		{text: "hello /start", ok: false},
		{text: "/", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if tt.ok {
			assert.Equal(t, tt.name, name, tt.text)
			assert.Equal(t, tt.args, args, tt.text)
		}
	}
}

func TestMessengerDownload(t *testing.T) {
	t.Parallel()

	t.Run("writes file", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{getFile: true, file: "hello", fileSize: 5}
		b := newTestBot(t, api)
		m := NewMessenger(b, config.TelegramConfig{MaxDownloadBytes: 1024})

		dest := filepath.Join(t.TempDir(), "f1.jpg")
		require.NoError(t, m.Download(t.Context(), "f1", dest))

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("declared size over limit", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{getFile: true, file: "x", fileSize: 4096})
		m := NewMessenger(b, config.TelegramConfig{MaxDownloadBytes: 1024})

		err := m.Download(t.Context(), "f1", filepath.Join(t.TempDir(), "f"))
		assert.ErrorIs(t, err, pipeline.ErrFileTooLarge)
	})

	t.Run("body over limit", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{getFile: true, file: strings.Repeat("x", 2048)})
		m := NewMessenger(b, config.TelegramConfig{MaxDownloadBytes: 1024})

		err := m.Download(t.Context(), "f1", filepath.Join(t.TempDir(), "f"))
		assert.ErrorIs(t, err, pipeline.ErrFileTooLarge)
	})

	t.Run("getFile fails", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, &fakeAPI{})
		m := NewMessenger(b, config.TelegramConfig{})

		assert.Error(t, m.Download(t.Context(), "bad", filepath.Join(t.TempDir(), "f")))
	})
}

func TestMessengerSendAndTyping(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	b := newTestBot(t, api)
	m := NewMessenger(b, config.TelegramConfig{})

	require.NoError(t, m.SendText(t.Context(), 100, "hi there"))
	m.Typing(t.Context(), 100)

	sent := api.sent("sendMessage")
	require.Len(t, sent, 1)
	assert.Equal(t, "hi there", sent[0].fields["text"])
	assert.Equal(t, "100", sent[0].fields["chat_id"])

	actions := api.sent("sendChatAction")
	require.Len(t, actions, 1)
	assert.Equal(t, "typing", actions[0].fields["action"])
}
