package fswatch

import "sync"

// NullWatcher implements Watcher without observing the filesystem at all:
// Watch and Unwatch maintain the same registry bookkeeping and error
// semantics as every other backend, but no event is ever produced. Useful
// for exercising code that holds a Watcher without depending on a capable
// host, or for benchmarking overhead unrelated to OS notification cost.
type NullWatcher struct {
	mu     sync.Mutex
	roots  map[string]RecursiveMode
	closed bool
}

var _ Watcher = (*NullWatcher)(nil)

// NewNullWatcher creates a NullWatcher. sink is accepted for interface
// symmetry with the other backends but is never written to.
func NewNullWatcher(sink chan<- Event) (*NullWatcher, error) {
	if sink == nil {
		return nil, errGeneric(nil)
	}
	return &NullWatcher{roots: make(map[string]RecursiveMode)}, nil
}

func (w *NullWatcher) Watch(path string, mode RecursiveMode) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}
	if _, err := statPath(abs); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errGeneric(nil)
	}
	w.roots[abs] = mode
	return nil
}

func (w *NullWatcher) Unwatch(path string) error {
	abs, err := canonicalize(path)
	if err != nil {
		return errIO(path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[abs]; !ok {
		return errWatchNotFound(abs)
	}
	delete(w.roots, abs)
	return nil
}

func (w *NullWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.roots = make(map[string]RecursiveMode)
	return nil
}
