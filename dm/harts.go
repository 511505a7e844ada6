package dm

import (
	"github.com/boljen/go-bitmap"
)

// HartVector tracks per-hart debug status bits. The halted, resume-ack
// and unavailable bits are owned by the external execution engine; the
// have-reset and request bits are owned by the debug module's reset
// and control bookkeeping.
type HartVector struct {
	n int

	halted      bitmap.Bitmap
	resumeAck   bitmap.Bitmap
	unavailable bitmap.Bitmap
	haveReset   bitmap.Bitmap

	haltReq   bitmap.Bitmap
	resumeReq bitmap.Bitmap
}

// NewHartVector creates status vectors for n harts.
func NewHartVector(n int) *HartVector {
	return &HartVector{
		n:           n,
		halted:      bitmap.New(n),
		resumeAck:   bitmap.New(n),
		unavailable: bitmap.New(n),
		haveReset:   bitmap.New(n),
		haltReq:     bitmap.New(n),
		resumeReq:   bitmap.New(n),
	}
}

// Len returns the number of harts.
func (h *HartVector) Len() int {
	return h.n
}

// Exists reports whether hart i is present.
func (h *HartVector) Exists(i int) bool {
	return i >= 0 && i < h.n
}

// Halted reports whether hart i is halted. Nonexistent harts read as
// not halted.
func (h *HartVector) Halted(i int) bool {
	return h.Exists(i) && h.halted.Get(i)
}

// SetHalted records the execution engine's halted bit for hart i.
func (h *HartVector) SetHalted(i int, v bool) {
	if h.Exists(i) {
		h.halted.Set(i, v)
	}
}

// ResumeAck reports whether hart i has acknowledged a resume request.
func (h *HartVector) ResumeAck(i int) bool {
	return h.Exists(i) && h.resumeAck.Get(i)
}

// SetResumeAck records the resume acknowledge bit for hart i.
func (h *HartVector) SetResumeAck(i int, v bool) {
	if h.Exists(i) {
		h.resumeAck.Set(i, v)
	}
}

// Unavailable reports whether hart i is unavailable.
func (h *HartVector) Unavailable(i int) bool {
	return h.Exists(i) && h.unavailable.Get(i)
}

// SetUnavailable records the unavailable bit for hart i.
func (h *HartVector) SetUnavailable(i int, v bool) {
	if h.Exists(i) {
		h.unavailable.Set(i, v)
	}
}

// HaveReset reports whether hart i has been reset since the last
// acknowledge.
func (h *HartVector) HaveReset(i int) bool {
	return h.Exists(i) && h.haveReset.Get(i)
}

// SetHaveReset latches the have-reset bit for hart i. It is cleared
// only by AckHaveReset.
func (h *HartVector) SetHaveReset(i int) {
	if h.Exists(i) {
		h.haveReset.Set(i, true)
	}
}

// SetHaveResetAll latches the have-reset bit for every hart. The
// module uses this when it forces a non-debug reset.
func (h *HartVector) SetHaveResetAll() {
	for i := 0; i < h.n; i++ {
		h.haveReset.Set(i, true)
	}
}

// AckHaveReset clears the have-reset bit for hart i. Acknowledging a
// hart whose bit is already clear is a no-op.
func (h *HartVector) AckHaveReset(i int) {
	if h.Exists(i) {
		h.haveReset.Set(i, false)
	}
}

// HaltRequested reports whether a halt request is pending for hart i.
func (h *HartVector) HaltRequested(i int) bool {
	return h.Exists(i) && h.haltReq.Get(i)
}

// SetHaltRequest sets or clears the pending halt request for hart i.
func (h *HartVector) SetHaltRequest(i int, v bool) {
	if h.Exists(i) {
		h.haltReq.Set(i, v)
	}
}

// ResumeRequested reports whether a resume request is pending for
// hart i.
func (h *HartVector) ResumeRequested(i int) bool {
	return h.Exists(i) && h.resumeReq.Get(i)
}

// SetResumeRequest sets or clears the pending resume request for
// hart i.
func (h *HartVector) SetResumeRequest(i int, v bool) {
	if h.Exists(i) {
		h.resumeReq.Set(i, v)
	}
}

// ClearRequests drops all pending halt and resume requests. Module
// deactivation uses this; the engine-owned status bits survive.
func (h *HartVector) ClearRequests() {
	for i := 0; i < h.n; i++ {
		h.haltReq.Set(i, false)
		h.resumeReq.Set(i, false)
	}
}

// HaltSum returns the halt summary word for the given level and hart
// selection. Level 0 is the raw 32-bit slice of per-hart halted bits
// containing the selected hart. Levels 1 through 3 reduce 32-wide
// groups of the level below with AND, windowed by successively higher
// slices of the hart-select value, so a debugger can binary-search a
// large hart population without reading each hart's status.
func (h *HartVector) HaltSum(level int, hartsel int) uint32 {
	if level < 0 || level > 3 {
		return 0
	}

	if level == 0 {
		base := (hartsel >> 5) << 5
		var word uint32
		for j := 0; j < 32; j++ {
			if h.Halted(base + j) {
				word |= 1 << uint(j)
			}
		}
		return word
	}

	// groupSize harts per result bit, 32 groups per window.
	groupSize := 1
	for l := 0; l < level; l++ {
		groupSize *= 32
	}
	windowSize := groupSize * 32
	base := (hartsel / windowSize) * windowSize

	var word uint32
	for j := 0; j < 32; j++ {
		start := base + j*groupSize
		if start >= h.n {
			break
		}
		end := start + groupSize
		if end > h.n {
			end = h.n
		}
		all := true
		for i := start; i < end; i++ {
			if !h.halted.Get(i) {
				all = false
				break
			}
		}
		if all {
			word |= 1 << uint(j)
		}
	}
	return word
}
