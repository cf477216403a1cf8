package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerCoalescesBursts(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(filepath.Join(t.TempDir(), "groups"), nil)

	var builds atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	c.buildFn = func(context.Context) error {
		if builds.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}

	c.Trigger()
	<-started // first build is now in flight

	// Burst of triggers while the build runs: all must collapse into at
	// most one follow-up build.
	for range 20 {
		c.Trigger()
	}
	close(release)
	c.Wait()

	if got := builds.Load(); got != 2 {
		t.Errorf("burst of triggers produced %d builds, want 2 (in-flight + one coalesced)", got)
	}
}

func TestTriggerWhenIdleRunsOneBuild(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(filepath.Join(t.TempDir(), "groups"), nil)

	var builds atomic.Int64
	c.buildFn = func(context.Context) error {
		builds.Add(1)
		return nil
	}

	c.Trigger()
	c.Wait()

	if got := builds.Load(); got != 1 {
		t.Errorf("single trigger produced %d builds, want 1", got)
	}
}

func TestTriggerAfterFailedBuildRetries(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(filepath.Join(t.TempDir(), "groups"), nil)

	var builds atomic.Int64
	c.buildFn = func(context.Context) error {
		builds.Add(1)
		return os.ErrPermission
	}

	c.Trigger()
	c.Wait()
	c.Trigger()
	c.Wait()

	if got := builds.Load(); got != 2 {
		t.Errorf("got %d build attempts, want 2 (failure must not wedge the coordinator)", got)
	}
}

func TestBuildSerializesWithTriggeredBuilds(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(filepath.Join(t.TempDir(), "groups"), nil)

	var active, overlaps atomic.Int64
	c.buildFn = func(context.Context) error {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return nil
	}

	// Interleave synchronous builds with trigger-driven drain builds; the
	// two paths must share one serialization.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Trigger()
		}()
		go func() {
			defer wg.Done()
			if err := c.Build(context.Background()); err != nil {
				t.Errorf("Build failed: %v", err)
			}
		}()
	}
	wg.Wait()
	c.Wait()

	if got := overlaps.Load(); got != 0 {
		t.Errorf("observed %d concurrent build overlaps, want 0", got)
	}
}

func TestBuildSnapshotsGroupFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	groupsDir := filepath.Join(root, "groups")
	if err := os.MkdirAll(filepath.Join(groupsDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"123.csv":         "header\nrow\n",
		"456.csv":         "header\n",
		"nested/deep.csv": "x\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(groupsDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCoordinator(groupsDir, nil)
	if err := c.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if c.ArchivePath() != filepath.Join(root, "groups.zip") {
		t.Fatalf("archive path = %q, want %q", c.ArchivePath(), filepath.Join(root, "groups.zip"))
	}

	zr, err := zip.OpenReader(c.ArchivePath())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	want := []string{"groups/123.csv", "groups/456.csv", "groups/nested/deep.csv"}
	if !slices.Equal(names, want) {
		t.Errorf("archive entries = %v, want %v", names, want)
	}

	// No temporary file may survive a successful build.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "groups" && e.Name() != "groups.zip" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestBuildReplacesArchiveAtomically(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	groupsDir := filepath.Join(root, "groups")
	if err := os.MkdirAll(groupsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(groupsDir, "a.csv"), []byte("one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCoordinator(groupsDir, nil)
	if err := c.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(c.ArchivePath())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(groupsDir, "b.csv"), []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(c.ArchivePath())
	if err != nil {
		t.Fatal(err)
	}

	if string(first) == string(second) {
		t.Error("archive content unchanged after adding a file; snapshot was not rebuilt")
	}

	zr, err := zip.OpenReader(c.ArchivePath())
	if err != nil {
		t.Fatalf("published archive unreadable: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("archive holds %d entries, want 2", len(zr.File))
	}
}

func TestBuildMissingGroupsDir(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(filepath.Join(t.TempDir(), "groups"), nil)
	if err := c.Build(context.Background()); err != nil {
		t.Fatalf("Build on missing groups dir failed: %v", err)
	}

	zr, err := zip.OpenReader(c.ArchivePath())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 0 {
		t.Errorf("archive holds %d entries, want 0", len(zr.File))
	}
}

func TestBuildHonorsContext(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	groupsDir := filepath.Join(root, "groups")
	if err := os.MkdirAll(groupsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(groupsDir, "a.csv"), []byte("one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(groupsDir, nil)
	if err := c.Build(ctx); err == nil {
		t.Error("Build with cancelled context succeeded, want error")
	}
	if _, err := os.Stat(c.ArchivePath()); !os.IsNotExist(err) {
		t.Errorf("aborted build published an archive (stat err: %v)", err)
	}

	// The failed attempt must not leave temp files behind.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "groups" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}
