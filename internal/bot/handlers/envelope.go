package handlers

import (
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/scribebot/internal/pipeline"
)

// EnvelopeFromMessage copies the fields the pipeline needs out of a Telegram message.
func EnvelopeFromMessage(msg *models.Message) pipeline.Envelope {
	env := pipeline.Envelope{
		MessageID: int64(msg.ID),
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
		HasVoice:  msg.Voice != nil,
		HasAudio:  msg.Audio != nil,
		HasVideo:  msg.Video != nil,
	}
	if msg.From != nil {
		env.UserID = msg.From.ID
		env.FirstName = msg.From.FirstName
		env.Username = msg.From.Username
	}
	for _, p := range msg.Photo {
		env.Photos = append(env.Photos, pipeline.PhotoSize{FileID: p.FileID, Width: p.Width, Height: p.Height})
	}
	if msg.Document != nil {
		env.Document = &pipeline.Document{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
		}
	}
	if msg.Contact != nil {
		env.Contact = &pipeline.Contact{PhoneNumber: msg.Contact.PhoneNumber, UserID: msg.Contact.UserID}
	}
	return env
}

// parseCommand splits "/name@bot arg1 arg2" into its lowercase name and
// arguments. ok is false when text is not a command.
func parseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) == 1 {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:], true
}
