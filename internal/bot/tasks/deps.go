// Package tasks implements scheduled maintenance tasks for scribebot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/ocr"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Scratch *ocr.Scratch
	Config  *config.Config
}
