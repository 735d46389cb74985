package fswatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNullWatcherNeverEmits(t *testing.T) {
	tmp := t.TempDir()
	sink := make(chan Event, 16)
	w, err := NewNullWatcher(sink)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Watch(tmp, Recursive))
	touch(t, tmp, "file.txt")

	got := drain(sink, 50*time.Millisecond)
	require.Empty(t, got)

	require.NoError(t, w.Unwatch(tmp))
}

func TestNullWatcherErrorSemanticsMatchOtherBackends(t *testing.T) {
	sink := make(chan Event, 1)
	w, err := NewNullWatcher(sink)
	require.NoError(t, err)

	err = w.Watch("/does/not/exist/anywhere", Recursive)
	require.ErrorIs(t, err, ErrPathNotFound)

	err = w.Unwatch("/never/registered")
	require.ErrorIs(t, err, ErrWatchNotFound)
}
