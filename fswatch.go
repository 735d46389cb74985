// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fswatch provides a platform-independent interface for filesystem
// change notifications.
//
// Clients register paths (files or directories, optionally recursive) with a
// Watcher and receive an ordered stream of Event values describing mutations
// to those paths and their descendants. These backends implement the
// contract:
//
//   - a kernel event-queue backend on Linux (inotify), pairing renames with a
//     kernel-assigned cookie;
//   - a coalesced change-stream backend on macOS (FSEvents), whose multi-flag
//     events can be split into a deterministic sequence with Inflate;
//   - a ReadDirectoryChangesW backend on Windows, which synthesizes its own
//     rename cookies;
//   - a portable PollWatcher that periodically rescans watched trees and
//     diffs snapshots.
//
// Platform idiosyncrasies are not hidden: the backends diverge in
// exactly the ways their underlying OS facilities diverge, and callers that
// need to run on more than one platform should expect that.
package fswatch

import (
	"fmt"
	"strings"
)

// Op is a bitset describing the operation(s) that produced an Event.
// Multiple bits may be set on a single event (this happens routinely on the
// macOS backend, which coalesces flags before Inflate is applied).
type Op uint32

const (
	// Create is set when a path was created, or (FSEvents only) when a path
	// re-appears in a stream after not being seen before.
	Create Op = 1 << iota
	// Write is set when a file's content changed.
	Write
	// Chmod is set when a path's permissions or ownership changed. On Linux
	// this is also sent when a watched path's last link is removed.
	Chmod
	// Rename is set on the source and destination halves of a move; the two
	// halves share a nonzero Event.Cookie. Not emitted by PollWatcher, which
	// has no move-pairing mechanism and reports moves as Remove+Create.
	Rename
	// Remove is set when a path was deleted.
	Remove
	// Rescan is a sentinel: notifications may have been dropped (kernel
	// queue overflow) and the consumer must rebuild its view of the watched
	// tree rather than trust the preceding event history.
	Rescan
)

// order is the canonical flag order used by Inflate.
var order = [...]Op{Create, Write, Chmod, Rename, Remove}

var opNames = map[Op]string{
	Create: "CREATE",
	Write:  "WRITE",
	Chmod:  "CHMOD",
	Rename: "RENAME",
	Remove: "REMOVE",
	Rescan: "RESCAN",
}

// Has reports whether all bits in o are set.
func (op Op) Has(o Op) bool { return op&o == o }

// String renders op as a pipe-separated list of flag names, e.g.
// "CREATE|WRITE". An empty bitset renders as "".
func (op Op) String() string {
	var b strings.Builder
	for _, o := range append(append([]Op{}, order[:]...), Rescan) {
		if op.Has(o) {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(opNames[o])
		}
	}
	return b.String()
}

// Event describes a single filesystem change. Path is always absolute.
//
// Cookie pairs the source and destination halves of a rename; it is nonzero
// only when the backend's OS facility supplies (or, for the macOS and Windows
// backends, can be synthesized for) that pairing. Within one Watcher's lifetime a
// given nonzero cookie appears on exactly two events, not necessarily
// contiguous.
//
// Err carries a failure to decode a raw OS notification, with Op left as the
// zero value; Inflate passes such events through unchanged. None of the
// backends in this package sets Err: a raw notification that maps to no Op
// is dropped, and the background thread keeps running.
type Event struct {
	Path   string
	Op     Op
	Cookie uint64
	Err    error
}

// String renders the event similarly to `path: OP|OP`.
func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%q: error: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("%q: %s", e.Path, e.Op)
}

// RecursiveMode controls whether a directory watch covers descendants
// transitively.
type RecursiveMode int

const (
	// NonRecursive watches only the direct children of a directory; mutations
	// strictly inside a child subdirectory are invisible, though a
	// modification to that subdirectory's own metadata is visible.
	NonRecursive RecursiveMode = iota
	// Recursive watches all current and future descendants of a directory.
	Recursive
)

func (m RecursiveMode) String() string {
	if m == Recursive {
		return "Recursive"
	}
	return "NonRecursive"
}

// Watcher is the contract implemented by every backend.
//
// A Watcher is safe to use from multiple goroutines: Watch and Unwatch
// serialize internally against the backend's background thread. A Watcher
// may be handed to another goroutine before its first use, and may be held
// behind a sync.RWMutex.
type Watcher interface {
	// Watch registers path, resolving a relative path against the current
	// working directory at the time of the call. Re-watching a path that
	// canonicalizes the same as an existing registration replaces it without
	// emitting spurious events. Returns ErrPathNotFound if path does not
	// exist.
	Watch(path string, mode RecursiveMode) error

	// Unwatch removes the registration for path's canonicalized form.
	// Returns ErrWatchNotFound if path is not currently registered — this
	// includes the case where the path was registered but has since been
	// deleted out from under a backend that auto-invalidates its handle.
	Unwatch(path string) error

	// Close releases all registrations and stops the background thread. No
	// further events are delivered after Close returns. Close is idempotent.
	Close() error
}
