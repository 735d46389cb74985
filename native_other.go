//go:build (!linux || appengine) && !darwin && !windows

package fswatch

// No native backend is available on this host class; New always falls back
// to PollWatcher.
func newNative(sink chan<- Event) (Watcher, error) {
	return nil, errGeneric(nil)
}
