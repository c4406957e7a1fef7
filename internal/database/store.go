package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// EnsureUser inserts the user unless a row with the same user_id exists.
	// It reports whether a row was inserted.
	EnsureUser(ctx context.Context, user *User) (bool, error)

	// GetUser retrieves a user by ID. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// SetPhoneNumber stores the phone number of a user, creating the user if needed.
	SetPhoneNumber(ctx context.Context, user *User, phone string) error

	// InsertChatTurn stores the turn unless one with the same
	// (user_id, chat_id, message_id) exists.
	InsertChatTurn(ctx context.Context, turn *ChatTurn) (bool, error)

	// InsertFileRecord stores the record unless one with the same key exists.
	InsertFileRecord(ctx context.Context, record *FileRecord) (bool, error)

	// InsertSearchRecord stores the record unless one with the same key exists.
	InsertSearchRecord(ctx context.Context, record *SearchRecord) (bool, error)

	// CountUsers returns the number of known users.
	CountUsers(ctx context.Context) (int64, error)

	// Report computes the aggregate report on demand.
	Report(ctx context.Context) (*AggregateReport, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) EnsureUser(ctx context.Context, user *User) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (user_id, first_name, username, chat_id, phone_number, created_at, updated_at)
        VALUES (:user_id, :first_name, :username, :chat_id, :phone_number, :created_at, :updated_at)
        ON CONFLICT (user_id) DO NOTHING;
    `

	inserted, _, err := s.insertIfAbsent(ctx, query, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error ensuring user", "user_id", user.UserID, "error", err)
		return false, fmt.Errorf("failed to ensure user %d: %w", user.UserID, err)
	}
	if inserted {
		s.logger.DebugContext(ctx, "Registered new user", "user_id", user.UserID, "chat_id", user.ChatID)
	}
	return inserted, nil
}

func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	if userID == 0 {
		return nil, errors.New("user_id cannot be zero")
	}

	var user User
	query := `SELECT user_id, first_name, username, chat_id, phone_number, created_at, updated_at
	          FROM users WHERE user_id = ?`

	err := s.db.GetContext(ctx, &user, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

func (s *sqlxStore) SetPhoneNumber(ctx context.Context, user *User, phone string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if phone == "" {
		return errors.New("phone number cannot be empty")
	}

	now := time.Now().UTC()
	user.PhoneNumber = sql.NullString{String: phone, Valid: true}
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (user_id, first_name, username, chat_id, phone_number, created_at, updated_at)
        VALUES (:user_id, :first_name, :username, :chat_id, :phone_number, :created_at, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET
            phone_number = excluded.phone_number,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		s.logger.ErrorContext(ctx, "Error saving phone number", "user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to save phone number for user %d: %w", user.UserID, err)
	}

	s.logger.InfoContext(ctx, "Phone number saved", "user_id", user.UserID)
	return nil
}

func (s *sqlxStore) InsertChatTurn(ctx context.Context, turn *ChatTurn) (bool, error) {
	if turn == nil {
		return false, errors.New("cannot save nil chat turn")
	}
	if err := validateKey(turn.UserID, turn.ChatID); err != nil {
		return false, err
	}
	switch turn.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		return false, fmt.Errorf("invalid sentiment %q", turn.Sentiment)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO chat_turns (user_id, chat_id, message_id, query, response, sentiment, timestamp)
        VALUES (:user_id, :chat_id, :message_id, :query, :response, :sentiment, :timestamp)
        ON CONFLICT (user_id, chat_id, message_id) DO NOTHING;
    `

	inserted, id, err := s.insertIfAbsent(ctx, query, turn)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving chat turn", "user_id", turn.UserID, "chat_id", turn.ChatID, "error", err)
		return false, fmt.Errorf("failed to save chat turn (chat %d, user %d): %w", turn.ChatID, turn.UserID, err)
	}
	if inserted {
		turn.ID = id
	} else {
		s.logger.DebugContext(ctx, "Chat turn already stored", "user_id", turn.UserID, "message_id", turn.MessageID)
	}
	return inserted, nil
}

func (s *sqlxStore) InsertFileRecord(ctx context.Context, record *FileRecord) (bool, error) {
	if record == nil {
		return false, errors.New("cannot save nil file record")
	}
	if err := validateKey(record.UserID, record.ChatID); err != nil {
		return false, err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO file_records (user_id, chat_id, message_id, filename, description, timestamp)
        VALUES (:user_id, :chat_id, :message_id, :filename, :description, :timestamp)
        ON CONFLICT (user_id, chat_id, message_id) DO NOTHING;
    `

	inserted, id, err := s.insertIfAbsent(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving file record", "user_id", record.UserID, "filename", record.Filename, "error", err)
		return false, fmt.Errorf("failed to save file record (chat %d, user %d): %w", record.ChatID, record.UserID, err)
	}
	if inserted {
		record.ID = id
	}
	return inserted, nil
}

func (s *sqlxStore) InsertSearchRecord(ctx context.Context, record *SearchRecord) (bool, error) {
	if record == nil {
		return false, errors.New("cannot save nil search record")
	}
	if err := validateKey(record.UserID, record.ChatID); err != nil {
		return false, err
	}
	if record.Links == nil {
		record.Links = Links{}
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO search_records (user_id, chat_id, message_id, query, summary, links, timestamp)
        VALUES (:user_id, :chat_id, :message_id, :query, :summary, :links, :timestamp)
        ON CONFLICT (user_id, chat_id, message_id) DO NOTHING;
    `

	inserted, id, err := s.insertIfAbsent(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving search record", "user_id", record.UserID, "error", err)
		return false, fmt.Errorf("failed to save search record (chat %d, user %d): %w", record.ChatID, record.UserID, err)
	}
	if inserted {
		record.ID = id
	}
	return inserted, nil
}

func (s *sqlxStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) Report(ctx context.Context) (*AggregateReport, error) {
	users, err := s.CountUsers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Report failed", "stage", "users", "error", err)
		return nil, err
	}

	report := &AggregateReport{TotalUsers: users, Files: map[string]int64{}}

	sentimentQuery := `
        SELECT COUNT(*) AS total,
               COALESCE(SUM(CASE WHEN sentiment = 'positive' THEN 1 ELSE 0 END), 0) AS positive,
               COALESCE(SUM(CASE WHEN sentiment = 'neutral'  THEN 1 ELSE 0 END), 0) AS neutral,
               COALESCE(SUM(CASE WHEN sentiment = 'negative' THEN 1 ELSE 0 END), 0) AS negative
        FROM chat_turns;
    `
	if err := s.db.GetContext(ctx, &report.Messages, sentimentQuery); err != nil {
		s.logger.ErrorContext(ctx, "Report failed", "stage", "messages", "error", err)
		return nil, fmt.Errorf("failed to aggregate chat turns: %w", err)
	}

	// rtrim strips every trailing non-period character, leaving the prefix up to
	// the last period; a name without one keeps its full text.
	extensionQuery := `
        SELECT substr(filename, length(rtrim(filename, replace(filename, '.', ''))) + 1) AS extension,
               COUNT(*) AS count
        FROM file_records
        GROUP BY extension;
    `
	var buckets []struct {
		Extension string `db:"extension"`
		Count     int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &buckets, extensionQuery); err != nil {
		s.logger.ErrorContext(ctx, "Report failed", "stage", "files", "error", err)
		return nil, fmt.Errorf("failed to aggregate file records: %w", err)
	}
	for _, b := range buckets {
		report.Files[b.Extension] = b.Count
	}

	return report, nil
}

// RunSQLMaintenance optimizes the query planner statistics and reclaims free pages.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// insertIfAbsent runs an INSERT ... ON CONFLICT DO NOTHING statement inside a
// transaction and reports whether a row was written.
func (s *sqlxStore) insertIfAbsent(ctx context.Context, query string, arg any) (bool, int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	result, err := tx.NamedExecContext(ctx, query, arg)
	if err != nil {
		return false, 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	var id int64
	if affected > 0 {
		if id, err = result.LastInsertId(); err != nil {
			s.logger.WarnContext(ctx, "Failed to get last insert ID", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return affected > 0, id, nil
}

func validateUser(user *User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return validateKey(user.UserID, user.ChatID)
}

func validateKey(userID, chatID int64) error {
	if userID == 0 {
		return errors.New("record must have a non-zero user_id")
	}
	if chatID == 0 {
		return errors.New("record must have a non-zero chat_id")
	}
	return nil
}
