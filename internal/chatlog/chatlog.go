// Package chatlog implements durable, concurrent, append-only logging of
// chat messages into per-group CSV files: key sanitization, event-to-row
// mapping, per-file lock management, and the append engine itself.
package chatlog

import (
	"context"
	"log/slog"
)

// ArchiveTrigger is the fire-and-forget hook the recorder pulls after every
// successful append. Implementations must be safe for concurrent use and
// must not block ingestion.
type ArchiveTrigger interface {
	Trigger()
}

// Recorder is the ingestion point: it receives one event at a time from the
// host event source, maps it to a row, appends it, and nudges the archive
// coordinator. It never lets a single bad event take down the host.
type Recorder struct {
	writer  *Writer
	archive ArchiveTrigger
	logger  *slog.Logger
}

// NewRecorder wires the ingestion point. archive may be nil when archival is
// disabled.
func NewRecorder(writer *Writer, archive ArchiveTrigger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		writer:  writer,
		archive: archive,
		logger:  logger.With("component", "recorder"),
	}
}

// Record handles one incoming message event. Only group messages are
// persisted in this schema; everything else is skipped. Mapping and write
// failures (including panics from opaque payload rendering) are logged and
// confined to this event so subsequent events keep flowing.
func (r *Recorder) Record(ctx context.Context, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Panic while recording message",
				"group_id", event.GroupID, "message_id", event.MessageID, "panic", rec)
		}
	}()

	if event.GroupID == "" {
		r.logger.DebugContext(ctx, "Skipping non-group message",
			"session_id", event.SessionID, "message_id", event.MessageID)
		return
	}

	row := event.Row()
	if err := r.writer.Append(event.GroupID, row); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record message",
			"group_id", event.GroupID, "message_id", event.MessageID,
			"path", r.writer.PathForGroup(event.GroupID), "error", err)
		return
	}

	r.logger.DebugContext(ctx, "Recorded message",
		"group_id", event.GroupID, "message_id", event.MessageID)

	if r.archive != nil {
		r.archive.Trigger()
	}
}
