package jtag

import (
	"github.com/sarchlab/rvdebug/dmi"
)

// ScanPort is one TCK edge of the scan transport. The caller drives
// TMS and TDI, the edge is applied, and the returned TDO is sampled
// strictly after the drive.
type ScanPort interface {
	Clock(tms, tdi bool) bool
}

// Framer is the client side of the scan transport. It walks the TAP
// state machine through the documented capture, shift, update sequence
// and frames whole DMI transactions onto the bit-serial wire.
type Framer struct {
	port    ScanPort
	abits   uint
	ir      Instruction
	irValid bool
}

// NewFramer creates a framer over the given port. abits must match
// the target's DMI address width; ReadDTMCS reports the authoritative
// value.
func NewFramer(port ScanPort, abits uint) *Framer {
	return &Framer{port: port, abits: abits}
}

// ResetSequence fully resets the transport: five TMS-high edges force
// the TAP into test-logic-reset from any state, and a DTMCS hard
// reset drops all DMI transport state.
func (f *Framer) ResetSequence() {
	f.walkToIdle()
	f.WriteDTMCS(DTMCSDMIHardReset)
}

// SoftResetSequence re-synchronizes the TAP state machine without
// touching DMI transport state: outstanding transactions and the
// sticky busy condition survive.
func (f *Framer) SoftResetSequence() {
	f.walkToIdle()
}

func (f *Framer) walkToIdle() {
	for i := 0; i < 5; i++ {
		f.port.Clock(true, false)
	}
	f.port.Clock(false, false)
	// Test-logic-reset latches IDCODE.
	f.ir = InstrIDCode
	f.irValid = true
}

// SetInstruction latches the given instruction register. Reselecting
// the already-latched instruction is a strict no-op: no scan cost is
// paid.
func (f *Framer) SetInstruction(code Instruction) {
	if f.irValid && f.ir == code {
		return
	}

	// RunTestIdle -> SelectDR -> SelectIR -> CaptureIR -> ShiftIR
	f.port.Clock(true, false)
	f.port.Clock(true, false)
	f.port.Clock(false, false)
	f.port.Clock(false, false)
	for i := 0; i < irBits; i++ {
		last := i == irBits-1
		f.port.Clock(last, code&(1<<uint(i)) != 0)
	}
	// Exit1IR -> UpdateIR -> RunTestIdle
	f.port.Clock(true, false)
	f.port.Clock(false, false)

	f.ir = code
	f.irValid = true
}

// ShiftData shifts out through the currently selected data register
// and returns the bits captured from TDO, LSB first. The walk is
// strictly capture, shift, update, idle.
func (f *Framer) ShiftData(out []bool) []bool {
	in := make([]bool, len(out))

	// RunTestIdle -> SelectDR -> CaptureDR -> ShiftDR
	f.port.Clock(true, false)
	f.port.Clock(false, false)
	f.port.Clock(false, false)
	for i := range out {
		last := i == len(out)-1
		in[i] = f.port.Clock(last, out[i])
	}
	// Exit1DR -> UpdateDR -> RunTestIdle
	f.port.Clock(true, false)
	f.port.Clock(false, false)

	return in
}

// IdleCycles clocks n run-test/idle cycles, giving the internal
// domain time to service an outstanding transaction.
func (f *Framer) IdleCycles(n int) {
	for i := 0; i < n; i++ {
		f.port.Clock(false, false)
	}
}

// ReadIDCode scans out the identification code.
func (f *Framer) ReadIDCode() uint32 {
	f.SetInstruction(InstrIDCode)
	return uint32(bitsToUint64(f.ShiftData(make([]bool, 32))))
}

// ReadDTMCS scans out the transport control/status register.
func (f *Framer) ReadDTMCS() uint32 {
	f.SetInstruction(InstrDTMCS)
	return uint32(bitsToUint64(f.ShiftData(make([]bool, 32))))
}

// WriteDTMCS scans the given value into the transport control/status
// register, typically to pulse dmireset or dmihardreset.
func (f *Framer) WriteDTMCS(value uint32) {
	f.SetInstruction(InstrDTMCS)
	f.ShiftData(uint64ToBits(uint64(value), 32))
}

// ScanDMI shifts one DMI request frame and returns the response frame
// captured by the same scan. The captured response belongs to the
// previous transaction; collecting this request's response takes a
// later scan.
func (f *Framer) ScanDMI(req dmi.Request) dmi.Response {
	f.SetInstruction(InstrDMIAccess)
	width := dmi.FrameBits(f.abits)
	in := f.ShiftData(uint64ToBits(req.Pack(f.abits), width))
	return dmi.UnpackResponse(bitsToUint64(in))
}

// uint64ToBits expands the low n bits of v, LSB first.
func uint64ToBits(v uint64, n uint) []bool {
	bits := make([]bool, n)
	for i := uint(0); i < n; i++ {
		bits[i] = v&(1<<i) != 0
	}
	return bits
}

// bitsToUint64 packs bits, LSB first.
func bitsToUint64(bits []bool) uint64 {
	var v uint64
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}
