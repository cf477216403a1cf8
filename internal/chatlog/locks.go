package chatlog

import (
	"path/filepath"
	"sync"
)

// lockRegistry hands out exactly one mutex per target file path for the
// lifetime of the process. The guard mutex covers only the map
// check-and-insert; file I/O happens under the per-path mutex, never under
// the guard. Entries are never removed: the key space is bounded by the
// number of real groups, so the map stays small.
type lockRegistry struct {
	guard sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// acquire returns the mutex for path, creating it on first use. Concurrent
// callers for the same path always receive the same mutex. Paths are cleaned
// so spelling variants of one file share a lock.
func (r *lockRegistry) acquire(path string) *sync.Mutex {
	path = filepath.Clean(path)

	r.guard.Lock()
	defer r.guard.Unlock()

	mu, ok := r.locks[path]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[path] = mu
	}
	return mu
}
