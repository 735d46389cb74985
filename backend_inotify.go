//go:build linux && !appengine

package fswatch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/fswatch/fswatch/internal"
	"golang.org/x/sys/unix"
)

// addMask is the set of inotify flags every watched directory or file is
// registered with. It covers every Op the kernel-queue backend can produce.
const addMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_ATTRIB |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_DELETE |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_EXCL_UNLINK

// inotifyDebug is read once; set FSWATCH_DEBUG=1 to trace raw masks to
// stderr as they arrive, same knob the fsevents and Windows backends use.
var inotifyDebug = os.Getenv("FSWATCH_DEBUG") != ""

// dirWatch is one inotify watch descriptor: either a registered root itself
// or, for a recursive root, one of its descendant directories.
type dirWatch struct {
	wd   int32
	path string // absolute path this wd watches
	root string // the registered root this wd descends from (== path for the root's own watch)
}

// InotifyWatcher is the kernel-queue backend: one inotify instance per
// Watcher, a descriptor per watched directory (every descendant directory of
// a recursive root gets its own, added as it's discovered), and native
// cookie-paired Rename events.
type InotifyWatcher struct {
	sink chan<- Event
	fd   int
	file *os.File

	mu     sync.Mutex
	byWd   map[int32]*dirWatch
	byPath map[string]*dirWatch
	roots  map[string]RecursiveMode
	closed bool

	done chan struct{}
}

var _ Watcher = (*InotifyWatcher)(nil)

// NewInotifyWatcher creates the Linux kernel-queue backend.
func NewInotifyWatcher(sink chan<- Event) (*InotifyWatcher, error) {
	if sink == nil {
		return nil, errGeneric(nil)
	}
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errGeneric(err)
	}
	w := &InotifyWatcher{
		sink:   sink,
		fd:     fd,
		file:   os.NewFile(uintptr(fd), "inotify"),
		byWd:   make(map[int32]*dirWatch),
		byPath: make(map[string]*dirWatch),
		roots:  make(map[string]RecursiveMode),
		done:   make(chan struct{}),
	}
	go w.readLoop()
	return w, nil
}

// Watch registers path. Directory roots get one inotify watch per directory
// in the tree (all of it when mode is Recursive, just the root when it
// isn't); non-recursive directory watches rely on inotify delivering events
// for direct children of a watched directory natively, so no extra
// bookkeeping is needed for that case. A regular file gets a single watch on
// itself.
func (w *InotifyWatcher) Watch(path string, mode RecursiveMode) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}
	fi, err := statPath(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errGeneric(nil)
	}
	if _, exists := w.roots[abs]; exists {
		w.removeRootLocked(abs)
	}

	if !fi.IsDir() {
		if err := w.addDirLocked(abs, abs); err != nil {
			return err
		}
		w.roots[abs] = mode
		return nil
	}

	if mode != Recursive {
		if err := w.addDirLocked(abs, abs); err != nil {
			return err
		}
		w.roots[abs] = mode
		return nil
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.addDirLocked(abs, p)
	})
	if err != nil {
		w.removeRootLocked(abs)
		return errIO(abs, err)
	}
	w.roots[abs] = mode
	return nil
}

// Unwatch removes path's registration and every descendant watch it owns.
func (w *InotifyWatcher) Unwatch(path string) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[abs]; !ok {
		return errWatchNotFound(abs)
	}
	w.removeRootLocked(abs)
	delete(w.roots, abs)
	return nil
}

// Close stops the read loop and releases the inotify file descriptor.
func (w *InotifyWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.file.Close()
	<-w.done
	return err
}

func (w *InotifyWatcher) addDirLocked(root, path string) error {
	wd, err := unix.InotifyAddWatch(w.fd, path, addMask)
	if err != nil {
		return errIO(path, err)
	}
	dw := &dirWatch{wd: int32(wd), path: path, root: root}
	w.byWd[int32(wd)] = dw
	w.byPath[path] = dw
	return nil
}

// removeRootLocked drops every watch descriptor owned by root. Descriptors
// the kernel already auto-removed (self-delete, rmdir) are simply absent
// from byWd by the time this runs; inotify_rm_watch on a live one may still
// fail with EINVAL if it raced with an auto-removal, which is harmless.
func (w *InotifyWatcher) removeRootLocked(root string) {
	for p, dw := range w.byPath {
		if dw.root != root {
			continue
		}
		unix.InotifyRmWatch(w.fd, uint32(dw.wd))
		delete(w.byWd, dw.wd)
		delete(w.byPath, p)
	}
}

func (w *InotifyWatcher) readLoop() {
	defer close(w.done)

	var buf [unix.SizeofInotifyEvent * 4096]byte
	for {
		n, err := internal.IgnoringEINTR(func() (int, error) { return w.file.Read(buf[:]) })
		if err != nil {
			return // file closed by Close()
		}
		if n < unix.SizeofInotifyEvent {
			continue
		}

		var offset uint32
		for offset <= uint32(n)-unix.SizeofInotifyEvent {
			raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			mask := raw.Mask
			nameLen := raw.Len

			if inotifyDebug {
				internal.Debug("inotify", mask)
			}

			if mask&unix.IN_Q_OVERFLOW != 0 {
				w.emitRescan()
				offset += unix.SizeofInotifyEvent + nameLen
				continue
			}

			w.handleRaw(raw, buf[offset+unix.SizeofInotifyEvent:offset+unix.SizeofInotifyEvent+nameLen])
			offset += unix.SizeofInotifyEvent + nameLen
		}
	}
}

func (w *InotifyWatcher) emitRescan() {
	w.mu.Lock()
	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	w.mu.Unlock()
	for _, r := range roots {
		w.sink <- Event{Path: r, Op: Rescan}
	}
}

func (w *InotifyWatcher) handleRaw(raw *unix.InotifyEvent, nameBytes []byte) {
	w.mu.Lock()
	dw := w.byWd[raw.Wd]
	w.mu.Unlock()
	if dw == nil {
		return
	}

	path := dw.path
	if raw.Len > 0 {
		name := cStringTrim(nameBytes)
		path = filepath.Join(dw.path, name)
	}

	mask := raw.Mask
	if mask&unix.IN_IGNORED != 0 {
		w.mu.Lock()
		if dw.path == dw.root && w.byWd[raw.Wd] == dw {
			// The kernel dropped the root's own watch (e.g. self-delete): the
			// registration is gone, so a later Unwatch reports ErrWatchNotFound.
			delete(w.roots, dw.root)
		}
		delete(w.byWd, raw.Wd)
		delete(w.byPath, dw.path)
		w.mu.Unlock()
		return
	}

	switch {
	case mask&unix.IN_CREATE != 0:
		w.sink <- Event{Path: path, Op: Create}
		if mask&unix.IN_ISDIR != 0 {
			w.addDiscoveredDir(dw.root, path)
		}
	case mask&unix.IN_MODIFY != 0:
		w.sink <- Event{Path: path, Op: Write}
	case mask&unix.IN_ATTRIB != 0:
		w.sink <- Event{Path: path, Op: Chmod}
	case mask&unix.IN_DELETE != 0, mask&unix.IN_DELETE_SELF != 0:
		w.sink <- Event{Path: path, Op: Remove}
	case mask&unix.IN_MOVE_SELF != 0:
		w.sink <- Event{Path: path, Op: Remove}
	case mask&unix.IN_MOVED_FROM != 0:
		w.sink <- Event{Path: path, Op: Rename, Cookie: uint64(raw.Cookie)}
	case mask&unix.IN_MOVED_TO != 0:
		w.sink <- Event{Path: path, Op: Rename, Cookie: uint64(raw.Cookie)}
		if mask&unix.IN_ISDIR != 0 {
			w.addDiscoveredDir(dw.root, path)
		}
	}
}

// addDiscoveredDir watches a directory that just appeared under a recursive
// root, plus (for a moved-in directory) everything already inside it.
func (w *InotifyWatcher) addDiscoveredDir(root, path string) {
	w.mu.Lock()
	mode, ok := w.roots[root]
	w.mu.Unlock()
	if !ok || mode != Recursive {
		return
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		w.mu.Lock()
		_, already := w.byPath[p]
		w.mu.Unlock()
		if already {
			return nil
		}
		w.mu.Lock()
		_ = w.addDirLocked(root, p)
		w.mu.Unlock()
		return nil
	})
}

func cStringTrim(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
