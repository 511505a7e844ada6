package dm

import (
	"github.com/sarchlab/rvdebug/dmi"
)

// Config holds the debug module's fixed capacities.
type Config struct {
	// NumHarts is the number of harts reachable through hart select.
	NumHarts int

	// DataCount is the number of data operand words (1..12).
	DataCount int

	// ProgBufSize is the number of program buffer words (0..16).
	ProgBufSize int
}

// DefaultConfig returns the capacities used by the reference wiring:
// a single hart with the full operand and program buffer windows.
func DefaultConfig() Config {
	return Config{
		NumHarts:    1,
		DataCount:   MaxDataCount,
		ProgBufSize: MaxProgBufSize,
	}
}

// DebugModule is the debug control protocol engine. It serves DMI
// requests one at a time, latches control state, dispatches abstract
// commands to an external executor, and owns the system bus access
// engine.
//
// All methods run in the internal clock domain; the dmi.Channel
// serializes transport access, so nothing here is concurrent.
type DebugModule struct {
	cfg      Config
	harts    *HartVector
	sba      *SBA
	executor Executor

	dmactive bool
	ndmreset bool
	hartsel  int

	command  uint32
	autoexec uint32
	data     []uint32
	progbuf  []uint32

	busy   bool
	cmderr Sticky
}

// Option configures a DebugModule.
type Option func(*DebugModule)

// WithBus attaches the system bus fabric collaborator.
func WithBus(bus Bus) Option {
	return func(d *DebugModule) {
		d.sba = NewSBA(bus)
	}
}

// WithExecutor attaches the abstract command executor.
func WithExecutor(e Executor) Option {
	return func(d *DebugModule) {
		d.executor = e
	}
}

// New creates a debug module. Capacities outside the architectural
// windows are clamped.
func New(cfg Config, opts ...Option) *DebugModule {
	if cfg.NumHarts < 1 {
		cfg.NumHarts = 1
	}
	if cfg.DataCount < 1 {
		cfg.DataCount = 1
	}
	if cfg.DataCount > MaxDataCount {
		cfg.DataCount = MaxDataCount
	}
	if cfg.ProgBufSize < 0 {
		cfg.ProgBufSize = 0
	}
	if cfg.ProgBufSize > MaxProgBufSize {
		cfg.ProgBufSize = MaxProgBufSize
	}

	d := &DebugModule{
		cfg:     cfg,
		harts:   NewHartVector(cfg.NumHarts),
		sba:     NewSBA(nil),
		data:    make([]uint32, cfg.DataCount),
		progbuf: make([]uint32, cfg.ProgBufSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AttachExecutor sets the abstract command executor after
// construction, for collaborators that need the module first.
func (d *DebugModule) AttachExecutor(e Executor) {
	d.executor = e
}

// Tick advances the internal clock domain by one cycle.
func (d *DebugModule) Tick() {
	if d.dmactive {
		d.sba.Tick()
	}
}

// Handle serves one accepted DMI request. It is called exactly once
// per request by the channel.
func (d *DebugModule) Handle(req dmi.Request) dmi.Response {
	switch req.Op {
	case dmi.OpNop:
		return dmi.Response{Status: dmi.StatusSuccess}
	case dmi.OpRead:
		return dmi.Response{
			Data:   d.readReg(req.Address),
			Status: dmi.StatusSuccess,
		}
	case dmi.OpWrite:
		d.writeReg(req.Address, req.Data)
		return dmi.Response{Status: dmi.StatusSuccess}
	}
	return dmi.Response{Status: dmi.StatusFailed}
}

// Active reports whether dmactive is set.
func (d *DebugModule) Active() bool {
	return d.dmactive
}

// SelectedHart returns the currently selected hart index.
func (d *DebugModule) SelectedHart() int {
	return d.hartsel
}

// Harts exposes the hart status vectors to the execution engine.
func (d *DebugModule) Harts() *HartVector {
	return d.harts
}

// SBA exposes the system bus access engine.
func (d *DebugModule) SBA() *SBA {
	return d.sba
}

// CommandBusy reports whether an abstract command is executing.
func (d *DebugModule) CommandBusy() bool {
	return d.busy
}

// CommandErr returns the sticky abstract command error code.
func (d *DebugModule) CommandErr() CmdErr {
	return CmdErr(d.cmderr.Get())
}

// DataWord returns data word i; words are stable while a command is
// busy.
func (d *DebugModule) DataWord(i int) uint32 {
	if i < 0 || i >= len(d.data) {
		return 0
	}
	return d.data[i]
}

// SetDataWord stores data word i on behalf of the executor.
func (d *DebugModule) SetDataWord(i int, v uint32) {
	if i >= 0 && i < len(d.data) {
		d.data[i] = v
	}
}

// ProgBufWord returns program buffer word i.
func (d *DebugModule) ProgBufWord(i int) uint32 {
	if i < 0 || i >= len(d.progbuf) {
		return 0
	}
	return d.progbuf[i]
}

// CommandDone reports successful completion of the running command.
func (d *DebugModule) CommandDone() {
	d.busy = false
}

// CommandError reports a failed command. The executor's code takes
// precedence over a simultaneous clearing write.
func (d *DebugModule) CommandError(code CmdErr) {
	d.busy = false
	d.cmderr.Force(uint32(code))
}

// ReportHalted records that the execution engine halted a hart.
func (d *DebugModule) ReportHalted(hart int) {
	d.harts.SetHalted(hart, true)
}

// ReportResumed records that the execution engine resumed a hart: the
// halted bit drops, the resume acknowledge latches, and the pending
// resume request is consumed.
func (d *DebugModule) ReportResumed(hart int) {
	d.harts.SetHalted(hart, false)
	d.harts.SetResumeAck(hart, true)
	d.harts.SetResumeRequest(hart, false)
}

func (d *DebugModule) readReg(addr uint32) uint32 {
	if !d.dmactive && addr != RegDMControl {
		return 0
	}

	if addr >= RegData0 && addr < RegData0+uint32(d.cfg.DataCount) {
		idx := int(addr - RegData0)
		value := d.data[idx]
		if !d.busy && !d.cmderr.Any() && d.autoexec&(1<<uint(idx)) != 0 {
			d.startCommand()
		}
		return value
	}

	if addr >= RegProgBuf0 && addr < RegProgBuf0+uint32(d.cfg.ProgBufSize) {
		idx := int(addr - RegProgBuf0)
		value := d.progbuf[idx]
		if !d.busy && !d.cmderr.Any() && d.autoexec&(1<<uint(16+idx)) != 0 {
			d.startCommand()
		}
		return value
	}

	switch addr {
	case RegDMControl:
		return d.packDMControl()
	case RegDMStatus:
		return d.packDMStatus()
	case RegHartinfo:
		return 0
	case RegAbstractCS:
		return d.packAbstractCS()
	case RegCommand:
		return 0 // write-only
	case RegAbstractAuto:
		return d.autoexec
	case RegHaltSum0:
		return d.harts.HaltSum(0, d.hartsel)
	case RegHaltSum1:
		return d.harts.HaltSum(1, d.hartsel)
	case RegHaltSum2:
		return d.harts.HaltSum(2, d.hartsel)
	case RegHaltSum3:
		return d.harts.HaltSum(3, d.hartsel)
	case RegSBCS, RegSBAddress0, RegSBAddress1, RegSBData0, RegSBData1:
		return d.sba.ReadReg(addr)
	}
	return 0
}

func (d *DebugModule) writeReg(addr, value uint32) {
	if addr == RegDMControl {
		d.writeDMControl(value)
		return
	}
	if !d.dmactive {
		return
	}

	if addr >= RegData0 && addr < RegData0+uint32(d.cfg.DataCount) {
		if d.busy {
			d.cmderr.Latch(uint32(CmdErrBusy))
			return
		}
		d.data[addr-RegData0] = value
		return
	}

	if addr >= RegProgBuf0 && addr < RegProgBuf0+uint32(d.cfg.ProgBufSize) {
		if d.busy {
			d.cmderr.Latch(uint32(CmdErrBusy))
			return
		}
		d.progbuf[addr-RegProgBuf0] = value
		return
	}

	switch addr {
	case RegCommand:
		if d.busy {
			d.cmderr.Latch(uint32(CmdErrBusy))
			return
		}
		if d.cmderr.Any() {
			// No new command until the error is acknowledged.
			return
		}
		d.command = value
		d.startCommand()
	case RegAbstractCS:
		if d.busy {
			d.cmderr.Latch(uint32(CmdErrBusy))
			return
		}
		d.cmderr.Clear((value>>abstractcsCmdErrShift)&abstractcsCmdErrMask, d.busy)
	case RegAbstractAuto:
		if d.busy {
			return
		}
		mask := uint32(1)<<uint(d.cfg.DataCount) - 1
		mask |= (uint32(1)<<uint(d.cfg.ProgBufSize) - 1) << 16
		d.autoexec = value & mask
	case RegSBCS, RegSBAddress0, RegSBAddress1, RegSBData0, RegSBData1:
		d.sba.WriteReg(addr, value)
	}
	// Reads of dmstatus, hartinfo and haltsum are read-only; writes
	// land here and are silently dropped.
}

func (d *DebugModule) writeDMControl(value uint32) {
	if value&DMControlActive == 0 {
		if d.dmactive {
			d.deactivate()
		}
		d.dmactive = false
		return
	}
	d.dmactive = true

	lo := (value >> dmcontrolHartselLoShift) & dmcontrolHartselMask
	hi := (value >> dmcontrolHartselHiShift) & dmcontrolHartselMask
	d.hartsel = int(hi<<10 | lo)

	nd := value&DMControlNDMReset != 0
	if nd && !d.ndmreset {
		// Forcing a non-debug reset marks every hart as having reset.
		d.harts.SetHaveResetAll()
	}
	d.ndmreset = nd

	if value&DMControlHartReset != 0 {
		d.harts.SetHaveReset(d.hartsel)
	}
	if value&DMControlAckHaveReset != 0 {
		d.harts.AckHaveReset(d.hartsel)
	}

	d.harts.SetHaltRequest(d.hartsel, value&DMControlHaltReq != 0)
	if value&DMControlResumeReq != 0 {
		d.harts.SetResumeRequest(d.hartsel, true)
		d.harts.SetResumeAck(d.hartsel, false)
	} else {
		d.harts.SetResumeRequest(d.hartsel, false)
	}
}

// deactivate is the soft reset: nearly everything returns to idle
// defaults, while the have-reset bits keep their full hard-reset
// identity and the engine-owned status bits are untouched.
func (d *DebugModule) deactivate() {
	d.command = 0
	d.autoexec = 0
	for i := range d.data {
		d.data[i] = 0
	}
	for i := range d.progbuf {
		d.progbuf[i] = 0
	}
	d.busy = false
	d.cmderr.Reset()
	d.sba.Reset()
	d.harts.ClearRequests()
	d.hartsel = 0
	d.ndmreset = false
}

func (d *DebugModule) startCommand() {
	if d.executor == nil {
		d.cmderr.Latch(uint32(CmdErrNotSupported))
		return
	}
	d.busy = true
	d.executor.Execute(d.command)
}

func (d *DebugModule) packDMControl() uint32 {
	var v uint32
	if d.dmactive {
		v |= DMControlActive
	}
	if d.ndmreset {
		v |= DMControlNDMReset
	}
	sel := uint32(d.hartsel)
	v |= (sel & dmcontrolHartselMask) << dmcontrolHartselLoShift
	v |= ((sel >> 10) & dmcontrolHartselMask) << dmcontrolHartselHiShift
	return v
}

func (d *DebugModule) packDMStatus() uint32 {
	v := uint32(dmstatusVersion) | DMStatusAuthenticated

	sel := d.hartsel
	if !d.harts.Exists(sel) {
		return v | DMStatusAllNonexistent | DMStatusAnyNonexistent
	}

	halted := d.harts.Halted(sel)
	unavail := d.harts.Unavailable(sel)
	switch {
	case unavail:
		v |= DMStatusAllUnavail | DMStatusAnyUnavail
	case halted:
		v |= DMStatusAllHalted | DMStatusAnyHalted
	default:
		v |= DMStatusAllRunning | DMStatusAnyRunning
	}
	if d.harts.ResumeAck(sel) {
		v |= DMStatusAllResumeAck | DMStatusAnyResumeAck
	}
	if d.harts.HaveReset(sel) {
		v |= DMStatusAllHaveReset | DMStatusAnyHaveReset
	}
	return v
}

func (d *DebugModule) packAbstractCS() uint32 {
	v := uint32(d.cfg.ProgBufSize) << abstractcsProgBufSizeShift
	if d.busy {
		v |= AbstractCSBusy
	}
	v |= (d.cmderr.Get() & abstractcsCmdErrMask) << abstractcsCmdErrShift
	v |= uint32(d.cfg.DataCount)
	return v
}
