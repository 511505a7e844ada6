// Package dm implements the RISC-V debug module control plane: the
// DMI-addressable register file and command dispatcher, hart status
// bookkeeping with hierarchical halt summaries, and the system bus
// access engine.
package dm

// Debug module register addresses (debug spec 0.13 offsets).
const (
	RegData0        uint32 = 0x04 // data0..data11 occupy 0x04..0x0f
	RegDMControl    uint32 = 0x10
	RegDMStatus     uint32 = 0x11
	RegHartinfo     uint32 = 0x12
	RegHaltSum1     uint32 = 0x13
	RegAbstractCS   uint32 = 0x16
	RegCommand      uint32 = 0x17
	RegAbstractAuto uint32 = 0x18
	RegProgBuf0     uint32 = 0x20 // progbuf0..progbuf15 occupy 0x20..0x2f
	RegHaltSum2     uint32 = 0x34
	RegHaltSum3     uint32 = 0x35
	RegSBCS         uint32 = 0x38
	RegSBAddress0   uint32 = 0x39
	RegSBAddress1   uint32 = 0x3a
	RegSBData0      uint32 = 0x3c
	RegSBData1      uint32 = 0x3d
	RegHaltSum0     uint32 = 0x40
)

// MaxDataCount and MaxProgBufSize bound the operand register windows
// reachable through the address map.
const (
	MaxDataCount   = 12
	MaxProgBufSize = 16
)

// dmcontrol bits.
const (
	DMControlHaltReq      uint32 = 1 << 31
	DMControlResumeReq    uint32 = 1 << 30
	DMControlHartReset    uint32 = 1 << 29
	DMControlAckHaveReset uint32 = 1 << 28
	DMControlNDMReset     uint32 = 1 << 1
	DMControlActive       uint32 = 1 << 0

	dmcontrolHartselLoShift = 16 // hartsello, bits 25:16
	dmcontrolHartselHiShift = 6  // hartselhi, bits 15:6
	dmcontrolHartselMask    = 0x3ff
)

// DMControlHartsel returns the hartsello/hartselhi bits selecting the
// given hart, for composing dmcontrol write values.
func DMControlHartsel(hartsel int) uint32 {
	sel := uint32(hartsel)
	return (sel&dmcontrolHartselMask)<<dmcontrolHartselLoShift |
		((sel>>10)&dmcontrolHartselMask)<<dmcontrolHartselHiShift
}

// dmstatus bits. The register is read-only; writes are silently
// dropped.
const (
	DMStatusAllHaveReset   uint32 = 1 << 19
	DMStatusAnyHaveReset   uint32 = 1 << 18
	DMStatusAllResumeAck   uint32 = 1 << 17
	DMStatusAnyResumeAck   uint32 = 1 << 16
	DMStatusAllNonexistent uint32 = 1 << 15
	DMStatusAnyNonexistent uint32 = 1 << 14
	DMStatusAllUnavail     uint32 = 1 << 13
	DMStatusAnyUnavail     uint32 = 1 << 12
	DMStatusAllRunning     uint32 = 1 << 11
	DMStatusAnyRunning     uint32 = 1 << 10
	DMStatusAllHalted      uint32 = 1 << 9
	DMStatusAnyHalted      uint32 = 1 << 8
	DMStatusAuthenticated  uint32 = 1 << 7

	dmstatusVersion = 2 // debug spec 0.13
)

// abstractcs field layout.
const (
	AbstractCSBusy uint32 = 1 << 12

	abstractcsProgBufSizeShift = 24
	abstractcsCmdErrShift      = 8
	abstractcsCmdErrMask       = 0x7
)

// AbstractCSCmdErr extracts the command error code from an abstractcs
// value.
func AbstractCSCmdErr(v uint32) CmdErr {
	return CmdErr((v >> abstractcsCmdErrShift) & abstractcsCmdErrMask)
}

// CmdErrBits returns the abstractcs write value that clears the given
// error code (write-1-to-clear).
func CmdErrBits(e CmdErr) uint32 {
	return (uint32(e) & abstractcsCmdErrMask) << abstractcsCmdErrShift
}

// CmdErr is the sticky 3-bit abstract command error code.
type CmdErr uint32

// Abstract command error codes.
const (
	CmdErrNone         CmdErr = 0
	CmdErrBusy         CmdErr = 1
	CmdErrNotSupported CmdErr = 2
	CmdErrException    CmdErr = 3
	CmdErrHaltResume   CmdErr = 4
	CmdErrBus          CmdErr = 5
	CmdErrOther        CmdErr = 7
)

// String returns a short name for the command error code.
func (e CmdErr) String() string {
	switch e {
	case CmdErrNone:
		return "none"
	case CmdErrBusy:
		return "busy"
	case CmdErrNotSupported:
		return "not supported"
	case CmdErrException:
		return "exception"
	case CmdErrHaltResume:
		return "halt/resume"
	case CmdErrBus:
		return "bus"
	case CmdErrOther:
		return "other"
	}
	return "reserved"
}

// sbcs field layout.
const (
	SBCSBusyError uint32 = 1 << 22
	SBCSBusy      uint32 = 1 << 21

	sbcsVersionShift   = 29
	sbcsVersion        = 1
	sbcsReadOnAddr     = uint32(1) << 20
	sbcsAccessShift    = 17
	sbcsAccessMask     = uint32(0x7)
	sbcsAutoIncrement  = uint32(1) << 16
	sbcsReadOnData     = uint32(1) << 15
	sbcsErrorShift     = 12
	sbcsErrorMask      = uint32(0x7)
	sbcsASizeShift     = 5
	sbcsASize          = 64
	sbcsSupportedSizes = 0xf // 8, 16, 32 and 64-bit accesses
)

// SBCSError extracts the sticky bus error code from an sbcs value.
func SBCSError(v uint32) SBError {
	return SBError((v >> sbcsErrorShift) & sbcsErrorMask)
}

// SBCSErrorBits returns the sbcs write value that clears the given
// bus error code (write-1-to-clear).
func SBCSErrorBits(e SBError) uint32 {
	return (uint32(e) & sbcsErrorMask) << sbcsErrorShift
}

// PackSBCSControl composes an sbcs write value for the given access
// policy. The sticky error fields are left zero so the write does not
// clear them as a side effect.
func PackSBCSControl(
	readOnAddr, readOnData, autoIncrement bool,
	access uint32,
) uint32 {
	var v uint32
	if readOnAddr {
		v |= sbcsReadOnAddr
	}
	if readOnData {
		v |= sbcsReadOnData
	}
	if autoIncrement {
		v |= sbcsAutoIncrement
	}
	v |= (access & sbcsAccessMask) << sbcsAccessShift
	return v
}

// SBError is the sticky 3-bit system bus error code.
type SBError uint32

// System bus error codes.
const (
	SBErrNone       SBError = 0
	SBErrTimeout    SBError = 1
	SBErrBadAddress SBError = 2
	SBErrAlignment  SBError = 3
	SBErrBadSize    SBError = 4
	SBErrOther      SBError = 7
)

// String returns a short name for the bus error code.
func (e SBError) String() string {
	switch e {
	case SBErrNone:
		return "none"
	case SBErrTimeout:
		return "timeout"
	case SBErrBadAddress:
		return "bad address"
	case SBErrAlignment:
		return "alignment"
	case SBErrBadSize:
		return "bad size"
	case SBErrOther:
		return "other"
	}
	return "reserved"
}

// sbaccess width codes; the code is log2 of the access size in bytes.
const (
	SBAccess8  uint32 = 0
	SBAccess16 uint32 = 1
	SBAccess32 uint32 = 2
	SBAccess64 uint32 = 3
)
