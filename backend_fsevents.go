//go:build darwin

package fswatch

import (
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/fswatch/fswatch/internal"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mutagen-io/fsevents"
)

var fsEventsDebug = os.Getenv("FSWATCH_DEBUG") != ""

// fsEventsLatency is the coalescing latency handed to the FSEvents daemon.
// Smaller than the library's usual default so tests see events promptly;
// the daemon still coalesces flags onto a single event within this window,
// which is exactly the behavior Inflate exists to undo downstream.
const fsEventsLatency = 20 * time.Millisecond

// renameCacheSize bounds the idempotent-cookie memo below; a rename whose
// destination never arrives (moved out of the watched tree entirely) would
// otherwise pin one entry forever.
const renameCacheSize = 256

// FSEventsWatcher is the system-stream backend: a single daemon-backed
// FSEvents stream covering every registered root, translating each raw,
// flag-coalesced notification into an Event without inflating it — per the
// contract, inflation is a consumer-side concern (see Inflate).
type FSEventsWatcher struct {
	sink chan<- Event

	mu     sync.Mutex
	roots  map[string]RecursiveMode
	stream *fsevents.EventStream
	device int32
	closed bool
	gen    int // bumped on every restart so a stale forwarder goroutine exits

	pairMu        sync.Mutex
	pendingPath   string
	pendingCookie uint64
	cookies       *lru.Cache[string, uint64]
}

var _ Watcher = (*FSEventsWatcher)(nil)

// NewFSEventsWatcher creates the macOS system-stream backend.
func NewFSEventsWatcher(sink chan<- Event) (*FSEventsWatcher, error) {
	if sink == nil {
		return nil, errGeneric(nil)
	}
	cookies, err := lru.New[string, uint64](renameCacheSize)
	if err != nil {
		return nil, errGeneric(err)
	}
	return &FSEventsWatcher{
		sink:    sink,
		roots:   make(map[string]RecursiveMode),
		device:  -1,
		cookies: cookies,
	}, nil
}

// Watch registers path with the shared FSEvents stream, restarting it so the
// daemon picks up the new root.
func (w *FSEventsWatcher) Watch(path string, mode RecursiveMode) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}
	if _, err := statPath(abs); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errGeneric(nil)
	}
	if w.device == -1 {
		var st syscall.Stat_t
		if err := syscall.Lstat(abs, &st); err != nil {
			return errIO(abs, err)
		}
		w.device = int32(st.Dev)
	}
	w.roots[abs] = mode
	return w.restartLocked()
}

// Unwatch drops path's registration and restarts the stream without it.
func (w *FSEventsWatcher) Unwatch(path string) error {
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
	return w.restartLocked()
}

// Close stops the stream and releases the forwarder goroutine.
func (w *FSEventsWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.gen++
	if w.stream != nil {
		w.stream.Stop()
		w.stream = nil
	}
	return nil
}

// restartLocked rebuilds the event stream for the current root set. Called
// with w.mu held.
func (w *FSEventsWatcher) restartLocked() error {
	if w.stream != nil {
		w.stream.Stop()
		w.stream = nil
	}
	w.gen++
	if len(w.roots) == 0 {
		return nil
	}

	paths := make([]string, 0, len(w.roots))
	for r := range w.roots {
		paths = append(paths, r)
	}

	stream := &fsevents.EventStream{
		Events:  make(chan []fsevents.Event, 64),
		Paths:   paths,
		Latency: fsEventsLatency,
		Device:  w.device,
		Flags:   fsevents.FileEvents | fsevents.WatchRoot,
	}
	stream.Start()
	w.stream = stream

	gen := w.gen
	go w.forward(stream, gen)
	return nil
}

func (w *FSEventsWatcher) forward(stream *fsevents.EventStream, gen int) {
	for batch := range stream.Events {
		w.mu.Lock()
		stale := gen != w.gen
		w.mu.Unlock()
		if stale {
			return
		}
		w.processBatch(batch)
	}
}

// processBatch translates one daemon wakeup. Renames are paired across the
// two halves of a move within (and, via the bounded memo, slightly beyond)
// a single batch, since FSEvents supplies no native cookie of its own.
func (w *FSEventsWatcher) processBatch(batch []fsevents.Event) {
	for _, e := range batch {
		if fsEventsDebug {
			internal.Debug(e.Path, e.Flags)
		}
		op := translateFSEventsFlags(e.Flags)
		if op == 0 {
			continue
		}
		ev := Event{Path: e.Path, Op: op}
		if op.Has(Rename) {
			ev.Cookie = w.pairCookie(e.Path)
		}
		w.sink <- ev
	}
}

func (w *FSEventsWatcher) pairCookie(path string) uint64 {
	w.pairMu.Lock()
	defer w.pairMu.Unlock()

	if c, ok := w.cookies.Get(path); ok {
		return c
	}
	if w.pendingPath == "" {
		w.pendingPath = path
		w.pendingCookie = newCookie()
		w.cookies.Add(path, w.pendingCookie)
		return w.pendingCookie
	}
	c := w.pendingCookie
	w.pendingPath = ""
	w.cookies.Add(path, c)
	return c
}

func translateFSEventsFlags(f fsevents.EventFlags) Op {
	var op Op
	if f&fsevents.ItemCreated != 0 {
		op |= Create
	}
	if f&fsevents.ItemRemoved != 0 {
		op |= Remove
	}
	if f&fsevents.ItemModified != 0 {
		op |= Write
	}
	if f&fsevents.ItemRenamed != 0 {
		op |= Rename
	}
	if f&fsevents.ItemInodeMetaMod != 0 || f&fsevents.ItemXattrMod != 0 {
		op |= Chmod
	}
	return op
}
