package fswatch

// New creates the recommended Watcher for the host: the kernel-queue
// backend on Linux, the system-stream backend on macOS, the native backend
// on Windows, and the polling backend everywhere else or if native backend
// initialization fails. This is a compile-time choice per platform, not a
// runtime fallback chain across working native backends — a failure here
// always falls back to polling rather than trying a second native option.
func New(sink chan<- Event) (Watcher, error) {
	if w, err := newNative(sink); err == nil {
		return w, nil
	}
	return NewPollWatcher(sink)
}
