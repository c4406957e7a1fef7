// Package pipeline turns an incoming chat message into a reply: it classifies
// the content, extracts text, enriches it with sentiment, generative text or
// web search, persists the interaction and sends the result back.
package pipeline

// Kind is the content category of a message.
type Kind string

// Content kinds, in classification priority order. Contact is routed before
// classification and never returned by Classify.
const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
	KindVoice    Kind = "voice"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindContact  Kind = "contact"
	KindUnknown  Kind = "unknown"
)

// PhotoSize is one resolution of a photo.
type PhotoSize struct {
	FileID string
	Width  int
	Height int
}

// Document is a file sent as an attachment.
type Document struct {
	FileID   string
	FileName string
	MimeType string
}

// Contact is a shared phone contact.
type Contact struct {
	PhoneNumber string
	UserID      int64
}

// Envelope is the platform-neutral view of an incoming message.
type Envelope struct {
	MessageID int64
	ChatID    int64
	UserID    int64
	FirstName string
	Username  string

	Text     string
	Photos   []PhotoSize
	Document *Document
	HasVoice bool
	HasAudio bool
	HasVideo bool
	Contact  *Contact
}

// Classify returns the first matching kind in the order text, photo,
// document, voice, audio, video, or KindUnknown.
func Classify(env Envelope) Kind {
	switch {
	case env.Text != "":
		return KindText
	case len(env.Photos) > 0:
		return KindPhoto
	case env.Document != nil:
		return KindDocument
	case env.HasVoice:
		return KindVoice
	case env.HasAudio:
		return KindAudio
	case env.HasVideo:
		return KindVideo
	default:
		return KindUnknown
	}
}

// LargestPhoto returns the size with the most pixels; on a tie the later one
// wins, matching the platform's smallest-to-largest ordering.
func LargestPhoto(sizes []PhotoSize) (PhotoSize, bool) {
	if len(sizes) == 0 {
		return PhotoSize{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height >= best.Width*best.Height {
			best = s
		}
	}
	return best, true
}
