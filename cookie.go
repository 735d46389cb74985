package fswatch

import "github.com/google/uuid"

// newCookie synthesizes a nonzero rename-pairing cookie for backends whose
// OS facility doesn't hand out one natively (system-stream and Windows). Collisions are
// astronomically unlikely within one watcher's lifetime; a zero result (the
// only invalid value per the data model) is re-rolled.
func newCookie() uint64 {
	for {
		id := uuid.New()
		var v uint64
		for _, b := range id[:8] {
			v = v<<8 | uint64(b)
		}
		if v != 0 {
			return v
		}
	}
}
