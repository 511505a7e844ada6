package jtag

import (
	"github.com/sarchlab/rvdebug/dmi"
)

// Instruction is a TAP instruction register code.
type Instruction uint8

// Instruction register codes. The IR is five bits wide.
const (
	InstrIDCode    Instruction = 0x01
	InstrDTMCS     Instruction = 0x10
	InstrDMIAccess Instruction = 0x11
	InstrBypass    Instruction = 0x1f

	irBits = 5
)

// DTMCS register fields.
const (
	dtmcsVersion    = 1 // debug spec 0.13
	dtmcsABitsShift = 4
	dtmcsStatShift  = 10
	dtmcsIdleShift  = 12

	// DTMCSDMIReset clears the sticky DMI busy condition without
	// touching in-flight transactions.
	DTMCSDMIReset = 1 << 16
	// DTMCSDMIHardReset drops all DMI transport state, including any
	// outstanding transaction.
	DTMCSDMIHardReset = 1 << 17
)

// DefaultIDCode is the identification code presented after TAP reset.
// Bit 0 of any valid IDCODE reads 1.
const DefaultIDCode uint32 = 0x1dece551

// TickFunc advances the internal clock domain. The DTM calls it on
// every TCK edge, ratio times, which encodes the external constraint
// that the scan clock is never faster than the internal clock.
type TickFunc func()

// DTM is the target side of the debug transport: a TAP whose data
// registers are IDCODE, DTMCS and the DMI access frame. Each call to
// Clock applies one TCK edge; TDI is driven before the edge and the
// returned TDO is what the probe samples after it.
type DTM struct {
	channel *dmi.Channel

	idcode   uint32
	abits    uint
	idleHint uint32

	tick      TickFunc
	tickRatio int

	state   State
	ir      Instruction
	irShift uint32
	drShift uint64
	drLen   int

	lastResponse dmi.Response
}

// DTMOption configures a DTM.
type DTMOption func(*DTM)

// WithIDCode overrides the identification code.
func WithIDCode(code uint32) DTMOption {
	return func(d *DTM) {
		d.idcode = code
	}
}

// WithIdleHint sets the run-test/idle cycle count advertised through
// DTMCS for avoiding busy responses.
func WithIdleHint(cycles uint32) DTMOption {
	return func(d *DTM) {
		d.idleHint = cycles
	}
}

// WithTicker attaches the internal clock domain. Each TCK edge
// advances it ratio cycles; ratios below one are rounded up.
func WithTicker(tick TickFunc, ratio int) DTMOption {
	if ratio < 1 {
		ratio = 1
	}
	return func(d *DTM) {
		d.tick = tick
		d.tickRatio = ratio
	}
}

// NewDTM creates the target-side transport over the given channel.
// abits is the DMI address width.
func NewDTM(channel *dmi.Channel, abits uint, opts ...DTMOption) *DTM {
	d := &DTM{
		channel:   channel,
		idcode:    DefaultIDCode | 1,
		abits:     abits,
		tickRatio: 1,
		state:     StateTestLogicReset,
		ir:        InstrIDCode,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current TAP controller state.
func (d *DTM) State() State {
	return d.state
}

// Instruction returns the latched instruction register.
func (d *DTM) Instruction() Instruction {
	return d.ir
}

// Clock applies one TCK edge. Shifting happens while the controller
// sits in a shift state, including the edge that exits it; capture and
// update actions fire on the edge that enters their state.
func (d *DTM) Clock(tms, tdi bool) bool {
	if d.tick != nil {
		for i := 0; i < d.tickRatio; i++ {
			d.tick()
		}
	}

	cur := d.state
	next := cur.Next(tms)

	var tdo bool
	switch cur {
	case StateShiftIR:
		tdo = d.irShift&1 != 0
		d.irShift >>= 1
		if tdi {
			d.irShift |= 1 << (irBits - 1)
		}
	case StateShiftDR:
		tdo = d.drShift&1 != 0
		d.drShift >>= 1
		if tdi && d.drLen > 0 {
			d.drShift |= 1 << uint(d.drLen-1)
		}
	}

	switch next {
	case StateTestLogicReset:
		d.ir = InstrIDCode
	case StateCaptureIR:
		d.irShift = 0b01
	case StateCaptureDR:
		d.captureDR()
	case StateUpdateIR:
		d.updateIR()
	case StateUpdateDR:
		d.updateDR()
	}

	d.state = next
	return tdo
}

func (d *DTM) captureDR() {
	switch d.ir {
	case InstrIDCode:
		d.drShift = uint64(d.idcode)
		d.drLen = 32
	case InstrDTMCS:
		d.drShift = uint64(d.packDTMCS())
		d.drLen = 32
	case InstrDMIAccess:
		d.drShift = d.captureDMI()
		d.drLen = int(dmi.FrameBits(d.abits))
	default:
		d.drShift = 0
		d.drLen = 1
	}
}

// captureDMI loads the response frame for the most recent DMI
// transaction. Collecting a response before the internal side has
// produced one is the transport-overlap race: the capture reads busy
// and the channel latches its sticky flag so later scans cannot
// mistake a stale frame for fresh data.
func (d *DTM) captureDMI() uint64 {
	if d.channel.Busy() {
		return dmi.Response{Status: dmi.StatusBusy}.Pack()
	}
	if rsp, ok := d.channel.Poll(); ok {
		d.lastResponse = rsp
		return rsp.Pack()
	}
	if d.channel.InFlight() > 0 {
		d.channel.SetBusy()
		return dmi.Response{Status: dmi.StatusBusy}.Pack()
	}
	return d.lastResponse.Pack()
}

func (d *DTM) updateIR() {
	code := Instruction(d.irShift & (1<<irBits - 1))
	switch code {
	case InstrIDCode, InstrDTMCS, InstrDMIAccess, InstrBypass:
		d.ir = code
	default:
		d.ir = InstrBypass
	}
}

func (d *DTM) updateDR() {
	switch d.ir {
	case InstrDTMCS:
		value := uint32(d.drShift)
		if value&DTMCSDMIReset != 0 {
			d.channel.ResetBusy()
		}
		if value&DTMCSDMIHardReset != 0 {
			d.channel.HardReset()
		}
	case InstrDMIAccess:
		req := dmi.UnpackRequest(d.drShift, d.abits)
		if req.Op == dmi.OpNop {
			return
		}
		if !d.channel.Submit(req) {
			// Queue full: the request is lost on the wire, which the
			// probe must observe as a busy condition.
			d.channel.SetBusy()
		}
	}
}

func (d *DTM) packDTMCS() uint32 {
	v := uint32(dtmcsVersion)
	v |= uint32(d.abits) << dtmcsABitsShift
	if d.channel.Busy() {
		v |= uint32(dmi.StatusBusy) << dtmcsStatShift
	}
	v |= (d.idleHint & 0x7) << dtmcsIdleShift
	return v
}
