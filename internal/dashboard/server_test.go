package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/database"
)

type fakeReporter struct {
	report  *database.AggregateReport
	err     error
	pingErr error
}

func (f fakeReporter) Report(context.Context) (*database.AggregateReport, error) {
	return f.report, f.err
}

func (f fakeReporter) Ping(context.Context) error { return f.pingErr }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func serve(t *testing.T, r Reporter, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(r, discard(), gin.TestMode)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardReport(t *testing.T) {
	report := &database.AggregateReport{
		TotalUsers: 2,
		Messages:   database.MessageStats{Total: 3, Positive: 1, Neutral: 1, Negative: 1},
		Files:      map[string]int64{"pdf": 2, "jpg": 1},
	}

	w := serve(t, fakeReporter{report: report}, "/dashboard")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total_users": 2,
		"messages": {"total": 3, "positive": 1, "neutral": 1, "negative": 1},
		"files": {"pdf": 2, "jpg": 1}
	}`, w.Body.String())
}

func TestDashboardReportFailure(t *testing.T) {
	w := serve(t, fakeReporter{err: errors.New("database is locked")}, "/dashboard")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"detail": "database is locked"}, body)
}

func TestDashboardEmptyStore(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "dash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	w := serve(t, database.NewStore(db, discard()), "/dashboard")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total_users": 0,
		"messages": {"total": 0, "positive": 0, "neutral": 0, "negative": 0},
		"files": {}
	}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	w := serve(t, fakeReporter{}, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, fakeReporter{pingErr: errors.New("closed")}, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "closed")
}

func TestServerStopsOnCancel(t *testing.T) {
	srv := NewServer(config.DashboardConfig{Addr: "127.0.0.1:0", GinMode: gin.TestMode}, fakeReporter{}, discard())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
