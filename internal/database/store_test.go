package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func seedUser(t *testing.T, store Store, userID int64) {
	t.Helper()

	_, err := store.EnsureUser(t.Context(), &User{UserID: userID, ChatID: userID, FirstName: "Ada"})
	require.NoError(t, err)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	inserted, err := store.EnsureUser(ctx, &User{UserID: 7, ChatID: 70, FirstName: "Ada", Username: "ada"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.EnsureUser(ctx, &User{UserID: 7, ChatID: 70, FirstName: "Changed"})
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	user, err := store.GetUser(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ada", user.FirstName)
	assert.False(t, user.PhoneNumber.Valid)
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	user, err := store.GetUser(t.Context(), 404)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSetPhoneNumber(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	// Unknown users are created on the fly.
	require.NoError(t, store.SetPhoneNumber(ctx, &User{UserID: 1, ChatID: 1}, "+100"))
	require.NoError(t, store.SetPhoneNumber(ctx, &User{UserID: 1, ChatID: 1}, "+200"))

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "+200", user.PhoneNumber.String)

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Error(t, store.SetPhoneNumber(ctx, &User{UserID: 1, ChatID: 1}, ""))
}

func TestConditionalInsertsAreIdempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()
	seedUser(t, store, 5)

	tests := []struct {
		name   string
		insert func() (bool, error)
	}{
		{
			name: "chat turn",
			insert: func() (bool, error) {
				return store.InsertChatTurn(ctx, &ChatTurn{
					UserID: 5, ChatID: 5, MessageID: 11,
					Query: "hi", Response: "hello", Sentiment: SentimentNeutral,
				})
			},
		},
		{
			name: "file record",
			insert: func() (bool, error) {
				return store.InsertFileRecord(ctx, &FileRecord{
					UserID: 5, ChatID: 5, MessageID: 12, Filename: "scan.pdf", Description: "a scan",
				})
			},
		},
		{
			name: "search record",
			insert: func() (bool, error) {
				return store.InsertSearchRecord(ctx, &SearchRecord{
					UserID: 5, ChatID: 5, MessageID: 13, Query: "go", Summary: "s", Links: Links{"https://go.dev"},
				})
			},
		},
	}

	for _, tt := range tests {
		first, err := tt.insert()
		require.NoError(t, err, tt.name)
		assert.True(t, first, tt.name)

		second, err := tt.insert()
		require.NoError(t, err, tt.name)
		assert.False(t, second, tt.name)
	}

	report, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Messages.Total)
	assert.Equal(t, map[string]int64{"pdf": 1}, report.Files)
}

func TestDistinctMessagesAreStoredSeparately(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()
	seedUser(t, store, 5)

	for _, msgID := range []int64{1, 2, 3} {
		inserted, err := store.InsertChatTurn(ctx, &ChatTurn{
			UserID: 5, ChatID: 5, MessageID: msgID, Query: "q", Response: "r", Sentiment: SentimentPositive,
		})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	report, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, MessageStats{Total: 3, Positive: 3}, report.Messages)
}

func TestInsertRequiresExistingUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.InsertChatTurn(t.Context(), &ChatTurn{
		UserID: 99, ChatID: 99, MessageID: 1, Query: "q", Response: "r", Sentiment: SentimentNeutral,
	})
	assert.Error(t, err)
}

func TestInsertChatTurnRejectsUnknownSentiment(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedUser(t, store, 5)

	_, err := store.InsertChatTurn(t.Context(), &ChatTurn{UserID: 5, ChatID: 5, Sentiment: "ecstatic"})
	assert.Error(t, err)
}

func TestReportEmpty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	report, err := store.Report(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.TotalUsers)
	assert.Equal(t, MessageStats{}, report.Messages)
	assert.NotNil(t, report.Files)
	assert.Empty(t, report.Files)
}

func TestReportBucketsExtensionsCaseSensitively(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()
	seedUser(t, store, 1)
	seedUser(t, store, 2)

	files := []struct {
		userID   int64
		msgID    int64
		filename string
	}{
		{1, 1, "a.JPG"},
		{1, 2, "b.jpg"},
		{2, 3, "archive.tar.gz"},
		{2, 4, "README"},
		{2, 5, "c.jpg"},
	}
	for _, f := range files {
		_, err := store.InsertFileRecord(ctx, &FileRecord{
			UserID: f.userID, ChatID: f.userID, MessageID: f.msgID, Filename: f.filename, Description: "d",
		})
		require.NoError(t, err)
	}

	turns := []string{SentimentPositive, SentimentNegative, SentimentNegative, SentimentNeutral}
	for i, s := range turns {
		_, err := store.InsertChatTurn(ctx, &ChatTurn{
			UserID: 1, ChatID: 1, MessageID: int64(100 + i), Query: "q", Response: "r", Sentiment: s,
		})
		require.NoError(t, err)
	}

	report, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TotalUsers)
	assert.Equal(t, MessageStats{Total: 4, Positive: 1, Neutral: 1, Negative: 2}, report.Messages)
	assert.Equal(t, map[string]int64{"JPG": 1, "jpg": 2, "gz": 1, "README": 1}, report.Files)
}

func TestSearchRecordLinksNeverNull(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()
	seedUser(t, store, 3)

	record := &SearchRecord{UserID: 3, ChatID: 3, MessageID: 1, Query: "nothing", Summary: "No summary available."}
	inserted, err := store.InsertSearchRecord(ctx, record)
	require.NoError(t, err)
	require.True(t, inserted)

	db := store.(*sqlxStore).db
	var raw string
	require.NoError(t, db.GetContext(ctx, &raw, `SELECT links FROM search_records WHERE id = ?`, record.ID))
	assert.Equal(t, "[]", raw)

	var links Links
	require.NoError(t, db.GetContext(ctx, &links, `SELECT links FROM search_records WHERE id = ?`, record.ID))
	assert.Equal(t, Links{}, links)
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	assert.NoError(t, store.RunSQLMaintenance(t.Context()))
}

func TestReportPropagatesQueryErrors(t *testing.T) {
	t.Parallel()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewStore(sqlx.NewDb(mockDB, "sqlmock"), nil)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`FROM chat_turns`).WillReturnError(errors.New("disk I/O error"))

	report, err := store.Report(t.Context())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRollsBackOnExecError(t *testing.T) {
	t.Parallel()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewStore(sqlx.NewDb(mockDB, "sqlmock"), nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO file_records`).WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	inserted, err := store.InsertFileRecord(t.Context(), &FileRecord{UserID: 1, ChatID: 1, Filename: "x.png"})
	require.Error(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinksScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     any
		want    Links
		wantErr bool
	}{
		{name: "nil", src: nil, want: Links{}},
		{name: "string", src: `["a","b"]`, want: Links{"a", "b"}},
		{name: "bytes", src: []byte(`["c"]`), want: Links{"c"}},
		{name: "json null", src: "null", want: Links{}},
		{name: "bad json", src: "{", wantErr: true},
		{name: "bad type", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var l Links
			err := l.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l)
		})
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data/bot.db", ExtractDBNameFromPath("file:data/bot.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "my bot.db", ExtractDBNameFromPath("my%20bot.db"))
	assert.Equal(t, "plain.db", ExtractDBNameFromPath("plain.db"))
}
