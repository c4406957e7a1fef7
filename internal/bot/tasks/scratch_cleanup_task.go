package tasks

import (
	"context"
	"fmt"
	"time"
)

// newScratchCleanupTask creates the scheduled task that removes scratch files
// left behind by interrupted downloads or renders.
func newScratchCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "scratch_cleanup")

	return func(ctx context.Context) error {
		if deps.Scratch == nil {
			return fmt.Errorf("scratch cleanup: no scratch directory configured")
		}

		removed, err := deps.Scratch.Sweep(deps.Config.OCR.ScratchMaxAge, time.Now())
		if err != nil {
			log.ErrorContext(ctx, "Scratch cleanup failed", "error", err, "removed", removed)
			return fmt.Errorf("scratch cleanup failed: %w", err)
		}

		if removed > 0 {
			log.InfoContext(ctx, "Removed stale scratch files", "removed", removed, "dir", deps.Scratch.Dir())
		} else {
			log.DebugContext(ctx, "No stale scratch files found", "dir", deps.Scratch.Dir())
		}
		return nil
	}
}
