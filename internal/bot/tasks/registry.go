// Package tasks defines the background tasks the scheduler can run.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/chatcsv/internal/archive"
)

// ScheduledTaskFunc is the signature of a runnable background task.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps carries the dependencies tasks may need.
type TaskDeps struct {
	Logger  *slog.Logger
	Archive *archive.Coordinator
}

// ArchiveRebuildTaskName is the registry key for the periodic archive
// rebuild.
const ArchiveRebuildTaskName = "archive_rebuild"

// RegisterAllTasks returns the full task registry. The scheduler decides
// which entries actually run based on configured schedules.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	return map[string]ScheduledTaskFunc{
		ArchiveRebuildTaskName: NewArchiveRebuildTask(deps),
	}
}

// NewArchiveRebuildTask returns a task that rebuilds the archive snapshot
// unconditionally, catching any appends that raced past the debounced
// on-record triggers. Build serializes against triggered builds, so the
// schedule can never race a drain build and publish a stale snapshot.
func NewArchiveRebuildTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		return deps.Archive.Build(ctx)
	}
}
