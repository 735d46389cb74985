package fswatch

// Inflate splits every multi-flag event in events into one single-flag event
// per set bit, in the canonical order Create, Write, Chmod, Rename, Remove.
// The original path and cookie are preserved on every sub-event. Events that
// already carry at most one flag (including Rescan and decode-error events)
// pass through unchanged, which makes Inflate idempotent: inflating an
// already-inflated stream is a no-op.
//
// This is the consumer-side transform the macOS backend's coalesced,
// multi-flag events require to become a deterministic linear sequence; the
// backend itself emits events as received from the host daemon and does not
// apply this transform on their behalf.
func Inflate(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Err != nil || e.Op == Rescan || singleBit(e.Op) {
			out = append(out, e)
			continue
		}
		for _, bit := range order {
			if e.Op.Has(bit) {
				out = append(out, Event{Path: e.Path, Op: bit, Cookie: e.Cookie})
			}
		}
		if e.Op.Has(Rescan) {
			out = append(out, Event{Path: e.Path, Op: Rescan, Cookie: e.Cookie})
		}
	}
	return out
}

// singleBit reports whether op has zero or one bit set.
func singleBit(op Op) bool {
	return op&(op-1) == 0
}
