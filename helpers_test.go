package fswatch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// join mirrors the variadic path-segment helpers the rest of the package's
// tests use: touch(t, tmp, "sub", "file") behaves like
// touch(t, filepath.Join(tmp, "sub", "file")).
func join(path ...string) string { return filepath.Join(path...) }

func touch(t *testing.T, path ...string) {
	t.Helper()
	f, err := os.OpenFile(join(path...), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func write(t *testing.T, data string, path ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(join(path...), []byte(data), 0o644))
}

func mkdir(t *testing.T, path ...string) {
	t.Helper()
	require.NoError(t, os.Mkdir(join(path...), 0o755))
}

func rm(t *testing.T, path ...string) {
	t.Helper()
	require.NoError(t, os.Remove(join(path...)))
}

func rmAll(t *testing.T, path ...string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(join(path...)))
}

func mv(t *testing.T, src string, dst ...string) {
	t.Helper()
	require.NoError(t, os.Rename(src, join(dst...)))
}

func chmod(t *testing.T, mode fs.FileMode, path ...string) {
	t.Helper()
	require.NoError(t, os.Chmod(join(path...), mode))
}

// drain collects every event sent to ch for window, then returns. It never
// blocks past window, which is enough time for the polling backend (run at
// a short test delay) to complete at least one scan cycle.
func drain(ch <-chan Event, window time.Duration) []Event {
	var got []Event
	deadline := time.After(window)
	for {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-deadline:
			return got
		}
	}
}

// pathOp strips Cookie and Err so scenarios that don't care about rename
// pairing can compare on (path, op) alone, matching the spec's "sorted
// multiset" comparison policy for the polling backend.
type pathOp struct {
	path string
	op   Op
}

func toPathOps(events []Event) []pathOp {
	out := make([]pathOp, len(events))
	for i, e := range events {
		out[i] = pathOp{path: e.Path, op: e.Op}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].path != out[j].path {
			return out[i].path < out[j].path
		}
		return out[i].op < out[j].op
	})
	return out
}

func assertEventMultiset(t *testing.T, got []Event, want []pathOp) {
	t.Helper()
	gotSorted := toPathOps(got)
	wantSorted := append([]pathOp{}, want...)
	sort.Slice(wantSorted, func(i, j int) bool {
		if wantSorted[i].path != wantSorted[j].path {
			return wantSorted[i].path < wantSorted[j].path
		}
		return wantSorted[i].op < wantSorted[j].op
	})
	require.Equalf(t, wantSorted, gotSorted, "event multiset mismatch\ngot:  %v\nwant: %v", gotSorted, wantSorted)
}
