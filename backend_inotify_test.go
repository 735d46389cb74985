//go:build linux && !appengine

package fswatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestInotifyWatcher(t *testing.T) (*InotifyWatcher, chan Event) {
	t.Helper()
	sink := make(chan Event, 256)
	w, err := NewInotifyWatcher(sink)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, sink
}

func TestInotifyRecursiveCreate(t *testing.T) {
	tmp := t.TempDir()
	w, sink := newTestInotifyWatcher(t)
	require.NoError(t, w.Watch(tmp, Recursive))

	mkdir(t, tmp, "sub")
	touch(t, tmp, "sub", "file.txt")

	got := drain(sink, scanWindow)
	assertEventMultiset(t, got, []pathOp{
		{join(tmp, "sub"), Create},
		{join(tmp, "sub", "file.txt"), Create},
	})
}

// TestInotifyRenamePairsNativeCookie exercises the one thing the kernel-queue
// backend gets for free that the other two don't: IN_MOVED_FROM/IN_MOVED_TO
// arrive with a shared, kernel-assigned Cookie.
func TestInotifyRenamePairsNativeCookie(t *testing.T) {
	tmp := t.TempDir()
	touch(t, tmp, "old.txt")

	w, sink := newTestInotifyWatcher(t)
	require.NoError(t, w.Watch(tmp, NonRecursive))

	mv(t, join(tmp, "old.txt"), tmp, "new.txt")

	got := drain(sink, scanWindow)
	require.Len(t, got, 2)
	for _, e := range got {
		require.Equal(t, Rename, e.Op)
	}
	require.NotZero(t, got[0].Cookie)
	require.Equal(t, got[0].Cookie, got[1].Cookie)

	paths := map[string]bool{got[0].Path: true, got[1].Path: true}
	require.True(t, paths[join(tmp, "old.txt")])
	require.True(t, paths[join(tmp, "new.txt")])
}

func TestInotifyDirectorySelfDeleteEmitsRemove(t *testing.T) {
	tmp := t.TempDir()
	mkdir(t, tmp, "gone")
	target := join(tmp, "gone")

	w, sink := newTestInotifyWatcher(t)
	require.NoError(t, w.Watch(target, NonRecursive))

	rm(t, target)

	got := drain(sink, scanWindow)
	require.NotEmpty(t, got)
	require.Equal(t, target, got[0].Path)
	require.Equal(t, Remove, got[0].Op)
}

func TestInotifyUnwatchNeverWatched(t *testing.T) {
	w, _ := newTestInotifyWatcher(t)
	err := w.Unwatch("/never/registered")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWatchNotFound)
}

func TestInotifyWatchUnknownPath(t *testing.T) {
	w, _ := newTestInotifyWatcher(t)
	err := w.Watch("/does/not/exist/anywhere", Recursive)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestInotifyCloseIsIdempotent(t *testing.T) {
	w, _ := newTestInotifyWatcher(t)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
