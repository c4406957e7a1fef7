package tasks

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/ocr"
)

func newDeps(t *testing.T) (TaskDeps, string) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	dir := t.TempDir()
	scratch, err := ocr.NewScratch(dir)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{OCR: config.OCRConfig{ScratchMaxAge: time.Hour}}

	return TaskDeps{Logger: log, Store: database.NewStore(db, log), Scratch: scratch, Config: cfg}, dir
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)

	tasks := RegisterAllTasks(deps)

	assert.Len(t, tasks, len(config.DefaultTasks))
	for name := range config.DefaultTasks {
		assert.Contains(t, tasks, name)
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)

	require.NoError(t, newSQLMaintenanceTask(deps)(t.Context()))
}

func TestScratchCleanupTask(t *testing.T) {
	t.Parallel()
	deps, dir := newDeps(t)

	stale := filepath.Join(dir, "stale.jpg")
	fresh := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, newScratchCleanupTask(deps)(t.Context()))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestScratchCleanupTaskWithoutScratch(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)
	deps.Scratch = nil

	assert.Error(t, newScratchCleanupTask(deps)(t.Context()))
}
