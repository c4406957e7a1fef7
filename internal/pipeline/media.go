package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/edgard/scribebot/internal/database"
)

// mediaState names the steps of the photo/document flow for logging.
type mediaState string

const (
	stateReceived   mediaState = "received"
	stateDownloaded mediaState = "downloaded"
	stateExtracted  mediaState = "extracted"
	stateEnriching  mediaState = "enriching"
	statePersisted  mediaState = "persisted"
	stateReplied    mediaState = "replied"
)

type mediaJob struct {
	fileID   string
	filename string // stored with the record
	local    string // scratch file name
	kind     Kind
}

func newMediaJob(env Envelope, kind Kind) (mediaJob, bool) {
	switch kind {
	case KindPhoto:
		photo, ok := LargestPhoto(env.Photos)
		if !ok || photo.FileID == "" {
			return mediaJob{}, false
		}
		name := photo.FileID + ".jpg"
		return mediaJob{fileID: photo.FileID, filename: name, local: name, kind: kind}, true

	case KindDocument:
		if env.Document == nil || env.Document.FileID == "" {
			return mediaJob{}, false
		}
		name := env.Document.FileName
		if strings.TrimSpace(name) == "" {
			name = env.Document.FileID
		}
		// Prefixed so concurrent uploads with the same name do not collide.
		return mediaJob{
			fileID:   env.Document.FileID,
			filename: name,
			local:    env.Document.FileID + "_" + name,
			kind:     kind,
		}, true
	}
	return mediaJob{}, false
}

// processMedia downloads a photo or document, extracts its text, asks for a
// description, stores the file record and replies. Progress messages are sent
// in order before the result.
func (p *Pipeline) processMedia(ctx context.Context, log *slog.Logger, m Messenger, env Envelope, kind Kind) {
	state := func(s mediaState) { log.DebugContext(ctx, "Media state", "state", s) }
	state(stateReceived)

	job, ok := newMediaJob(env, kind)
	if !ok {
		log.WarnContext(ctx, "Media message without a usable file reference")
		p.reply(ctx, log, m, env.ChatID, p.deps.Messages.FileRetrieveFailed)
		state(stateReplied)
		return
	}
	log = log.With("file_id", job.fileID, "filename", job.filename)

	p.ensureUser(ctx, log, env)
	m.Typing(ctx, env.ChatID)

	path := p.deps.Scratch.Path(job.local)
	if err := p.download(ctx, m, job.fileID, path); err != nil {
		log.ErrorContext(ctx, "Failed to download file", "error", err)
		p.reply(ctx, log, m, env.ChatID, p.deps.Messages.FileRetrieveFailed)
		state(stateReplied)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WarnContext(ctx, "Failed to remove downloaded file", "path", path, "error", err)
		}
	}()
	state(stateDownloaded)

	extracted := p.extract(ctx, job, path)
	state(stateExtracted)

	p.reply(ctx, log, m, env.ChatID, p.deps.Messages.Generating)
	state(stateEnriching)

	description, err := p.deps.Gemini.Describe(ctx, extracted)
	if err != nil {
		log.WarnContext(ctx, "Description unavailable", "error", err)
		description = p.deps.Messages.NoDescription
	}

	p.reply(ctx, log, m, env.ChatID, p.deps.Messages.Analyzing)

	record := &database.FileRecord{
		UserID:      env.UserID,
		ChatID:      env.ChatID,
		MessageID:   p.recordKey(env),
		Filename:    job.filename,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
	p.persist(ctx, log, "file record", func(ctx context.Context) (bool, error) {
		return p.deps.Store.InsertFileRecord(ctx, record)
	})
	state(statePersisted)

	p.reply(ctx, log, m, env.ChatID, formatOne(p.deps.Messages.FileReceived, description))
	state(stateReplied)
}

func (p *Pipeline) download(ctx context.Context, m Messenger, fileID, dest string) error {
	dlCtx, cancel := context.WithTimeout(ctx, p.deps.DownloadTimeout)
	defer cancel()

	if err := m.Download(dlCtx, fileID, dest); err != nil {
		// Partial downloads are not kept around.
		_ = os.Remove(dest)
		return err
	}
	return nil
}

// extract returns the file's text or the per-kind placeholder when nothing was found.
func (p *Pipeline) extract(ctx context.Context, job mediaJob, path string) string {
	var text, fallback string
	if job.kind == KindPhoto {
		text = p.deps.OCR.ExtractImage(ctx, path)
		fallback = p.deps.Messages.NoTextImage
	} else {
		text = p.deps.OCR.ExtractDocument(ctx, path, job.filename)
		fallback = p.deps.Messages.NoTextDocument
	}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}
