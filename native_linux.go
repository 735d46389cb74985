//go:build linux && !appengine

package fswatch

func newNative(sink chan<- Event) (Watcher, error) { return NewInotifyWatcher(sink) }
