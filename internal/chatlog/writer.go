package chatlog

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// groupsDirName is the directory under the chatcsv root holding one CSV
	// file per group.
	groupsDirName = "groups"

	// fallbackGroupKey names the target file for events whose group id
	// sanitizes to nothing.
	fallbackGroupKey = "unknown_group"

	dirPerm  = 0o755
	filePerm = 0o644
)

// DataRoot resolves the chatcsv root under a data directory:
// <dataDir>/plugin_data/chatcsv.
func DataRoot(dataDir string) string {
	return filepath.Join(dataDir, "plugin_data", "chatcsv")
}

// Writer is the append engine: it resolves group keys to target files,
// initializes the header exactly once per file, and serializes appends so a
// target file only ever sees whole rows from one writer at a time.
type Writer struct {
	root   string
	locks  *lockRegistry
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir (the chatcsv data root; group
// files live under dir/groups).
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		root:   dir,
		locks:  newLockRegistry(),
		logger: logger.With("component", "writer"),
	}
}

// GroupsDir returns the directory containing the per-group target files.
func (w *Writer) GroupsDir() string {
	return filepath.Join(w.root, groupsDirName)
}

// PathForGroup resolves a raw group id to its target file path. The id is
// sanitized before it touches the filesystem; an id that sanitizes to
// nothing falls back to the shared unknown_group file.
func (w *Writer) PathForGroup(groupID string) string {
	key := Sanitize(groupID)
	if key == "" {
		key = fallbackGroupKey
	}
	return filepath.Join(w.GroupsDir(), key+".csv")
}

// Append writes one row to the target file for groupID. The header is
// created on first use; the existence check, header write, and row append
// all happen under the file's lock, so the header always precedes data and
// is never duplicated. Appends to distinct files do not block each other.
func (w *Writer) Append(groupID string, row []string) error {
	path := w.PathForGroup(groupID)

	mu := w.locks.acquire(path)
	mu.Lock()
	defer mu.Unlock()

	if err := w.ensureFileReady(path); err != nil {
		return err
	}
	return appendRow(path, row)
}

// ensureFileReady creates the parent directory and, if the target file does
// not exist yet, writes the header row. Idempotent; callers must hold the
// file's lock.
func (w *Writer) ensureFileReady(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create groups directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat target file %s: %w", path, err)
	}

	if err := writeRow(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, Header); err != nil {
		return fmt.Errorf("failed to initialize target file %s: %w", path, err)
	}
	w.logger.Info("Created target file", "path", path)
	return nil
}

func appendRow(path string, row []string) error {
	if err := writeRow(path, os.O_WRONLY|os.O_APPEND, row); err != nil {
		return fmt.Errorf("failed to append row to %s: %w", path, err)
	}
	return nil
}

// writeRow opens path with the given flags and writes exactly one CSV
// record, checking the flush and close errors so a silently truncated row
// cannot go unnoticed.
func writeRow(path string, flags int, row []string) error {
	f, err := os.OpenFile(path, flags, filePerm)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(row); err != nil {
		_ = f.Close()
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
