package fswatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsAWorkingWatcher(t *testing.T) {
	sink := make(chan Event, 16)
	w, err := New(sink)
	require.NoError(t, err)
	require.NotNil(t, w)
	t.Cleanup(func() { _ = w.Close() })

	tmp := t.TempDir()
	require.NoError(t, w.Watch(tmp, Recursive))
	require.NoError(t, w.Unwatch(tmp))
}
