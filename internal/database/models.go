package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Sentiment labels stored with each chat turn.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// User is a Telegram user the bot has talked to.
// PhoneNumber stays NULL until the user shares a contact.
type User struct {
	UserID      int64          `db:"user_id"`
	FirstName   string         `db:"first_name"`
	Username    string         `db:"username"`
	ChatID      int64          `db:"chat_id"`
	PhoneNumber sql.NullString `db:"phone_number"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ChatTurn is one text query and the generated reply.
type ChatTurn struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	MessageID int64     `db:"message_id"`
	Query     string    `db:"query"`
	Response  string    `db:"response"`
	Sentiment string    `db:"sentiment"`
	Timestamp time.Time `db:"timestamp"`
}

// FileRecord is a received photo or document and its generated description.
type FileRecord struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ChatID      int64     `db:"chat_id"`
	MessageID   int64     `db:"message_id"`
	Filename    string    `db:"filename"`
	Description string    `db:"description"`
	Timestamp   time.Time `db:"timestamp"`
}

// SearchRecord is a web search, its summary and the top result links.
type SearchRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	MessageID int64     `db:"message_id"`
	Query     string    `db:"query"`
	Summary   string    `db:"summary"`
	Links     Links     `db:"links"`
	Timestamp time.Time `db:"timestamp"`
}

// Links is an ordered list of URLs stored as a JSON array.
// A nil list is stored as [] so the column never holds null.
type Links []string

// Value implements driver.Valuer.
func (l Links) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode links: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *Links) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = Links{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported links column type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode links: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// MessageStats counts chat turns by sentiment.
type MessageStats struct {
	Total    int64 `json:"total"    db:"total"`
	Positive int64 `json:"positive" db:"positive"`
	Neutral  int64 `json:"neutral"  db:"neutral"`
	Negative int64 `json:"negative" db:"negative"`
}

// AggregateReport is the read-only summary served by the dashboard.
// Files is keyed by the filename text after the last period (the whole name
// when there is none); keys are case-sensitive.
type AggregateReport struct {
	TotalUsers int64            `json:"total_users"`
	Messages   MessageStats     `json:"messages"`
	Files      map[string]int64 `json:"files"`
}
