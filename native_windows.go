//go:build windows

package fswatch

func newNative(sink chan<- Event) (Watcher, error) { return NewWindowsWatcher(sink) }
