// Package archive consolidates the per-group CSV files into a single zip
// snapshot. Builds are debounced with trailing coalescing: any burst of
// triggers during an in-flight build collapses into at most one follow-up
// build, and a reader never observes a partially written archive.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ArchiveName is the published snapshot file, written next to the groups
// directory.
const ArchiveName = "groups.zip"

// entryPrefix namespaces every archive entry under the groups directory
// name, so unpacking reproduces the on-disk layout.
const entryPrefix = "groups"

// Coordinator owns the archive lifecycle. State machine: idle -> pending ->
// building -> idle, guarded by one mutex plus two flags. Trigger is cheap
// and non-blocking; the build itself runs on a single background goroutine
// at a time.
type Coordinator struct {
	groupsDir string
	logger    *slog.Logger

	mu      sync.Mutex
	pending bool
	running bool

	// buildMu serializes the builds themselves: the drain goroutine and
	// synchronous Build callers hold it for the duration of one build, so
	// two builds can never run at once and a stale snapshot can never be
	// renamed over a fresher one.
	buildMu sync.Mutex

	// buildFn is swapped out by tests that exercise the debounce protocol
	// without touching the filesystem.
	buildFn func(context.Context) error
}

// NewCoordinator creates a coordinator that snapshots groupsDir into
// groups.zip in groupsDir's parent.
func NewCoordinator(groupsDir string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		groupsDir: groupsDir,
		logger:    logger.With("component", "archive"),
	}
	c.buildFn = c.buildOnce
	return c
}

// ArchivePath returns the published archive location.
func (c *Coordinator) ArchivePath() string {
	return filepath.Join(filepath.Dir(c.groupsDir), ArchiveName)
}

// Trigger requests an archive rebuild. If a build is in flight the request
// is recorded and picked up by that build's drain loop before it exits, so
// no trigger is ever lost and no queue of builds can form.
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	c.pending = true
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.drain()
}

// drain clears the pending flag and builds, repeating while new triggers
// arrived during the previous build. The exit decision and the running flag
// share the coordinator mutex, so a trigger racing with exit either sees
// running and sets pending (observed by the loop) or restarts the drain.
func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		if !c.pending {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()

		c.buildMu.Lock()
		err := c.buildFn(context.Background())
		c.buildMu.Unlock()
		if err != nil {
			c.logger.Error("Archive build failed", "error", err)
		}
	}
}

// Wait blocks until no build is running or pending. Test helper; the live
// system never needs to synchronize with the coordinator.
func (c *Coordinator) Wait() {
	for {
		c.mu.Lock()
		idle := !c.running && !c.pending
		c.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// Build performs one archive build synchronously, serialized against any
// build the drain goroutine is running. Callers that need the result (the
// one-shot command, scheduled tasks) use this instead of Trigger.
func (c *Coordinator) Build(ctx context.Context) error {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	return c.buildFn(ctx)
}

// buildOnce performs one full archive build: every regular file under the
// groups directory is written into a deflate-compressed zip at a temporary
// path, which is atomically renamed over the published archive only on
// success. A missing groups directory yields an empty archive rather than
// an error. Callers must hold buildMu.
func (c *Coordinator) buildOnce(ctx context.Context) error {
	target := c.ArchivePath()
	tmp := target + "." + uuid.NewString() + ".tmp"

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}

	if err := c.writeArchive(ctx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temporary archive: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish archive: %w", err)
	}

	c.logger.Info("Archive published", "path", target)
	return nil
}

func (c *Coordinator) writeArchive(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(c.groupsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == c.groupsDir && os.IsNotExist(walkErr) {
				return fs.SkipAll
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(c.groupsDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(filepath.Join(entryPrefix, rel)))
	})
	if err != nil {
		return fmt.Errorf("failed to archive groups directory: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}
