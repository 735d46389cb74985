//go:build darwin

package fswatch

func newNative(sink chan<- Event) (Watcher, error) { return NewFSEventsWatcher(sink) }
