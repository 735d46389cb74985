package fswatch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPollDelay is the scan interval used by NewPollWatcher. Filesystem
// mtime resolution dominates below about a second on most hosts, so setting
// this much lower buys little.
const DefaultPollDelay = 100 * time.Millisecond

// statEntry is the per-path metadata PollWatcher compares across scans. This
// mirrors the Snapshot tuple from the data model: modification time, size,
// file kind and permission bits. Kind and perm both derive from
// os.FileMode, split so a kind change (e.g. regular file replaced by a
// symlink in the same second) is distinguishable from a plain permission
// change even though both would otherwise collide in a single mode value.
type statEntry struct {
	modTime time.Time
	size    int64
	kind    fs.FileMode // fi.Mode().Type()
	perm    fs.FileMode // fi.Mode().Perm()
}

func (e statEntry) eq(o statEntry) bool {
	return e.modTime.Equal(o.modTime) && e.size == o.size && e.kind == o.kind && e.perm == o.perm
}

func entryOf(fi os.FileInfo) statEntry {
	return statEntry{
		modTime: fi.ModTime(),
		size:    fi.Size(),
		kind:    fi.Mode().Type(),
		perm:    fi.Mode().Perm(),
	}
}

// snapshot maps absolute descendant path to its last-observed metadata.
type snapshot map[string]statEntry

// pollRoot is the per-registered-path record the watch registry keeps for
// the polling backend.
type pollRoot struct {
	mode RecursiveMode
	snap snapshot
}

// PollWatcher is the portable backend: it owns a dedicated goroutine that
// periodically walks each watched root, diffs the fresh listing against the
// previous snapshot, and emits the symmetric-difference events. It has no
// move-pairing mechanism — a rename surfaces as a Remove of the old subtree,
// a Create of the new one, and a Write on their common parent.
type PollWatcher struct {
	sink  chan<- Event
	delay time.Duration

	mu     sync.Mutex // guards roots; held for the duration of each scan cycle
	roots  map[string]*pollRoot
	closed bool

	cancel context.CancelFunc
	group  *errgroup.Group
}

var _ Watcher = (*PollWatcher)(nil)

// NewPollWatcher creates a PollWatcher using DefaultPollDelay.
func NewPollWatcher(sink chan<- Event) (*PollWatcher, error) {
	return WithDelay(sink, DefaultPollDelay)
}

// WithDelay creates a PollWatcher whose scan cycles are spaced at least delay
// apart. The effective resolution is bounded below by filesystem mtime
// granularity (about one second on most hosts) regardless of how small delay
// is.
func WithDelay(sink chan<- Event, delay time.Duration) (*PollWatcher, error) {
	if sink == nil {
		return nil, errGeneric(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	w := &PollWatcher{
		sink:   sink,
		delay:  delay,
		roots:  make(map[string]*pollRoot),
		cancel: cancel,
		group:  group,
	}
	group.Go(func() error {
		w.loop(ctx)
		return nil
	})
	return w, nil
}

func (w *PollWatcher) loop(ctx context.Context) {
	t := time.NewTicker(w.delay)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.scanOnce()
		}
	}
}

// Watch registers path. The first snapshot is built synchronously so that a
// subsequent scan only reports genuinely new mutations, never the path's
// pre-existing contents.
func (w *PollWatcher) Watch(path string, mode RecursiveMode) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}
	if _, err := statPath(abs); err != nil {
		return err
	}

	snap, err := w.buildSnapshot(abs, mode)
	if err != nil {
		return errIO(abs, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errGeneric(nil)
	}
	w.roots[abs] = &pollRoot{mode: mode, snap: snap}
	return nil
}

// Unwatch removes path's registration.
func (w *PollWatcher) Unwatch(path string) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[abs]; !ok {
		return errWatchNotFound(abs)
	}
	delete(w.roots, abs)
	return nil
}

// Close stops the scan goroutine and joins it. Safe to call more than once.
func (w *PollWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.roots = make(map[string]*pollRoot)
	w.mu.Unlock()

	w.cancel()
	return w.group.Wait()
}

// scanOnce runs one full scan cycle: build a fresh snapshot per root, diff
// against the previous one, emit events, and replace the previous snapshot.
// The registry lock is held for the whole cycle, so a concurrent Watch or
// Unwatch call blocks until the cycle completes.
func (w *PollWatcher) scanOnce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	for root, pr := range w.roots {
		next, err := w.buildSnapshot(root, pr.mode)
		if err != nil {
			// The root (or one of its ancestors) vanished between scans; an
			// empty snapshot makes the diff emit Remove for everything that
			// was there. The registration stays in place: Unwatch still
			// succeeds, and if the path reappears a later scan reports it
			// as created.
			next = snapshot{}
		}
		diffInto(w.sink, pr.snap, next)
		pr.snap = next
	}
}

// diffInto computes the symmetric diff of prev and next and sends the
// resulting events to sink. Order within a cycle follows Go map iteration
// and is not part of the contract — consumers compare the emitted multiset,
// not a specific ordering.
func diffInto(sink chan<- Event, prev, next snapshot) {
	for path := range prev {
		if _, ok := next[path]; !ok {
			sink <- Event{Path: path, Op: Remove}
		}
	}
	for path, n := range next {
		p, ok := prev[path]
		if !ok {
			sink <- Event{Path: path, Op: Create}
			continue
		}
		if !p.eq(n) {
			sink <- Event{Path: path, Op: Write}
		}
	}
}

// buildSnapshot walks root and returns the metadata of everything it covers:
// the full subtree when mode is Recursive, or just root plus its direct
// children (one level) when NonRecursive. A root that is a regular file
// covers only itself.
func (w *PollWatcher) buildSnapshot(root string, mode RecursiveMode) (snapshot, error) {
	fi, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	snap := snapshot{root: entryOf(fi)}
	if !fi.IsDir() {
		return snap, nil
	}

	if mode == Recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			snap[path] = entryOf(info)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return snap, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, de := range entries {
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed between ReadDir and Info
			}
			return nil, err
		}
		snap[filepath.Join(root, de.Name())] = entryOf(info)
	}
	return snap, nil
}
