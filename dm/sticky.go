package dm

// Sticky is a write-1-to-clear status field. Once an event latches a
// value, it persists until the client explicitly clears it; the clear
// is only effective outside a busy window, which keeps the guard in
// one place instead of scattered through the register decode.
type Sticky struct {
	value uint32
}

// Get returns the current value.
func (s *Sticky) Get() uint32 {
	return s.value
}

// Any reports whether any bit is latched.
func (s *Sticky) Any() bool {
	return s.value != 0
}

// Latch sets the field to v only if it is currently clear. This is
// the transport-side path: a fault observed while an earlier fault is
// still latched must not overwrite it.
func (s *Sticky) Latch(v uint32) {
	if s.value == 0 {
		s.value = v
	}
}

// Force sets the field unconditionally. The external executor uses
// this; a fault it reports takes precedence over a simultaneous
// clearing write.
func (s *Sticky) Force(v uint32) {
	s.value = v
}

// Clear clears the bits set in mask, but only when not busy. Writing
// bit pattern B to a field holding V yields V &^ B.
func (s *Sticky) Clear(mask uint32, busy bool) {
	if busy {
		return
	}
	s.value &^= mask
}

// Reset forces the field to zero regardless of the busy guard. Used
// by module deactivation.
func (s *Sticky) Reset() {
	s.value = 0
}
