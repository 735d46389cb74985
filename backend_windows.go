//go:build windows

package fswatch

import (
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/fswatch/fswatch/internal"
	"golang.org/x/sys/windows"
)

var windowsDebug = os.Getenv("FSWATCH_DEBUG") != ""

// notifyFilter covers every FILE_NOTIFY_CHANGE_* bit this backend's Op
// mapping can produce from.
const notifyFilter = windows.FILE_NOTIFY_CHANGE_FILE_NAME |
	windows.FILE_NOTIFY_CHANGE_DIR_NAME |
	windows.FILE_NOTIFY_CHANGE_ATTRIBUTES |
	windows.FILE_NOTIFY_CHANGE_SIZE |
	windows.FILE_NOTIFY_CHANGE_LAST_WRITE

// winWatch is one outstanding ReadDirectoryChangesW call. ov must be the
// first field: GetQueuedCompletionStatus hands back an *Overlapped that we
// cast back to *winWatch through it.
type winWatch struct {
	ov     windows.Overlapped
	handle windows.Handle
	buf    [65536]byte

	root string        // the canonicalized path passed to Watch
	dir  string        // directory actually opened (== root, or root's parent for a file watch)
	base string        // basename filter when root is a file; "" when root is a directory
	mode RecursiveMode

	pendingRename string
	renameCookie  uint64
	removed       bool
}

// WindowsWatcher is the Windows-class backend: one IOCP port shared by every
// registered root, each backed by an overlapped ReadDirectoryChangesW call.
// Recursive directory watches use ReadDirectoryChangesW's native subtree
// flag rather than per-directory bookkeeping.
type WindowsWatcher struct {
	sink chan<- Event
	port windows.Handle

	mu     sync.Mutex
	byRoot map[string]*winWatch
	closed bool

	quit chan chan error
}

var _ Watcher = (*WindowsWatcher)(nil)

// NewWindowsWatcher creates the Windows-class backend.
func NewWindowsWatcher(sink chan<- Event) (*WindowsWatcher, error) {
	if sink == nil {
		return nil, errGeneric(nil)
	}
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, errGeneric(err)
	}
	w := &WindowsWatcher{
		sink:   sink,
		port:   port,
		byRoot: make(map[string]*winWatch),
		quit:   make(chan chan error, 1),
	}
	go w.readLoop()
	return w, nil
}

// Watch registers path. A directory registered Recursive is watched with
// ReadDirectoryChangesW's subtree flag; a file is watched by filtering its
// parent directory's stream down to its own basename.
func (w *WindowsWatcher) Watch(path string, mode RecursiveMode) error {
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
	if old, ok := w.byRoot[abs]; ok {
		w.stopWatchLocked(old)
		delete(w.byRoot, abs)
	}

	dir, base := abs, ""
	if !fi.IsDir() {
		dir, base = filepath.Dir(abs), filepath.Base(abs)
	}

	h, err := windows.CreateFile(windows.StringToUTF16Ptr(dir),
		windows.FILE_LIST_DIRECTORY,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED, 0)
	if err != nil {
		return errIO(dir, err)
	}
	if _, err := windows.CreateIoCompletionPort(h, w.port, 0, 0); err != nil {
		windows.CloseHandle(h)
		return errIO(dir, err)
	}

	wi := &winWatch{handle: h, root: abs, dir: dir, base: base, mode: mode}
	if err := w.armLocked(wi); err != nil {
		windows.CloseHandle(h)
		return errIO(abs, err)
	}
	w.byRoot[abs] = wi
	return nil
}

// Unwatch removes path's registration.
func (w *WindowsWatcher) Unwatch(path string) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	wi, ok := w.byRoot[abs]
	if !ok {
		return errWatchNotFound(abs)
	}
	w.stopWatchLocked(wi)
	delete(w.byRoot, abs)
	return nil
}

// Close stops every watch and the reader goroutine.
func (w *WindowsWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for abs, wi := range w.byRoot {
		w.stopWatchLocked(wi)
		delete(w.byRoot, abs)
	}
	w.mu.Unlock()

	ch := make(chan error)
	w.quit <- ch
	windows.PostQueuedCompletionStatus(w.port, 0, 0, nil)
	err := <-ch
	windows.CloseHandle(w.port)
	return err
}

func (w *WindowsWatcher) stopWatchLocked(wi *winWatch) {
	wi.removed = true
	windows.CancelIo(wi.handle)
	windows.CloseHandle(wi.handle)
}

// armLocked issues (or re-issues) the overlapped ReadDirectoryChangesW call
// for wi. Called with w.mu held.
func (w *WindowsWatcher) armLocked(wi *winWatch) error {
	subtree := wi.mode == Recursive && wi.base == ""
	return windows.ReadDirectoryChanges(wi.handle, &wi.buf[0],
		uint32(len(wi.buf)), subtree, notifyFilter, nil, &wi.ov, 0)
}

func (w *WindowsWatcher) readLoop() {
	var (
		n   uint32
		key uintptr
		ov  *windows.Overlapped
	)
	for {
		qErr := windows.GetQueuedCompletionStatus(w.port, &n, &key, &ov, windows.INFINITE)
		if ov == nil {
			select {
			case ch := <-w.quit:
				ch <- nil
				return
			default:
				continue
			}
		}

		wi := (*winWatch)(unsafe.Pointer(ov))

		w.mu.Lock()
		if wi.removed {
			w.mu.Unlock()
			continue
		}

		if qErr == windows.ERROR_ACCESS_DENIED {
			// The watched directory itself was removed.
			if wi.base == "" {
				w.sink <- Event{Path: wi.root, Op: 0}
			} else {
				w.sink <- Event{Path: wi.root, Op: Remove}
			}
			wi.removed = true
			delete(w.byRoot, wi.root)
			windows.CloseHandle(wi.handle)
			w.mu.Unlock()
			continue
		}
		if qErr != nil {
			w.mu.Unlock()
			continue
		}

		w.handleBuffer(wi, n)

		if err := w.armLocked(wi); err != nil {
			wi.removed = true
			delete(w.byRoot, wi.root)
			windows.CloseHandle(wi.handle)
		}
		w.mu.Unlock()
	}
}

// handleBuffer parses one ReadDirectoryChangesW buffer. Called with w.mu
// held.
func (w *WindowsWatcher) handleBuffer(wi *winWatch, n uint32) {
	if n == 0 {
		return
	}
	var offset uint32
	for {
		raw := (*windows.FileNotifyInformation)(unsafe.Pointer(&wi.buf[offset]))
		size := int(raw.FileNameLength / 2)
		name := windows.UTF16ToString(unsafe.Slice(&raw.FileName, size))

		if wi.base == "" || name == wi.base {
			w.emit(wi, raw.Action, filepath.Join(wi.dir, name))
		}

		if raw.NextEntryOffset == 0 {
			break
		}
		offset += raw.NextEntryOffset
		if offset >= n {
			break
		}
	}
}

func (w *WindowsWatcher) emit(wi *winWatch, action uint32, fullname string) {
	if windowsDebug {
		internal.Debug(fullname, action)
	}
	switch action {
	case windows.FILE_ACTION_ADDED:
		w.sink <- Event{Path: fullname, Op: Create}
	case windows.FILE_ACTION_REMOVED:
		w.sink <- Event{Path: fullname, Op: Remove}
	case windows.FILE_ACTION_MODIFIED:
		w.sink <- Event{Path: fullname, Op: Write}
	case windows.FILE_ACTION_RENAMED_OLD_NAME:
		wi.pendingRename = fullname
		wi.renameCookie = newCookie()
		w.sink <- Event{Path: fullname, Op: Rename, Cookie: wi.renameCookie}
	case windows.FILE_ACTION_RENAMED_NEW_NAME:
		w.sink <- Event{Path: fullname, Op: Rename, Cookie: wi.renameCookie}
		wi.pendingRename = ""
	}
}
