package dm

// Bus is the system bus fabric collaborator. Access issues a single
// transaction and returns the read data (for reads) together with a
// bus-level error code. The data path is synchronous; the SBA engine
// itself holds the busy window for Latency ticks before a completion
// becomes architecturally visible.
type Bus interface {
	Access(addr uint64, write bool, data uint64, size int) (uint64, SBError)
	Latency() int
}

// SBA is the system bus access engine. It issues at most one
// outstanding bus transaction on behalf of the debugger and reports
// back through the sbcs register fields.
type SBA struct {
	bus Bus

	readOnAddr    bool
	readOnData    bool
	autoIncrement bool
	access        uint32

	address uint64
	data    uint64

	busy      bool
	remaining int

	pendingWrite  bool
	pendingResult uint64
	pendingErr    SBError

	sbError   Sticky
	busyError Sticky
}

// NewSBA creates a bus access engine over the given fabric. A nil bus
// makes every transaction fail with SBErrBadAddress.
func NewSBA(bus Bus) *SBA {
	return &SBA{
		bus:    bus,
		access: SBAccess32,
	}
}

// Busy reports whether a bus transaction is still outstanding.
func (s *SBA) Busy() bool {
	return s.busy
}

// Address returns the current bus address register value.
func (s *SBA) Address() uint64 {
	return s.address
}

// Tick advances the engine by one internal clock cycle, retiring the
// outstanding transaction when its busy window elapses.
func (s *SBA) Tick() {
	if !s.busy {
		return
	}
	s.remaining--
	if s.remaining > 0 {
		return
	}
	s.busy = false

	if s.pendingErr != SBErrNone {
		s.sbError.Latch(uint32(s.pendingErr))
		return
	}
	if !s.pendingWrite {
		s.data = s.pendingResult
	}
	if s.autoIncrement {
		s.address += uint64(1) << s.access
	}
}

// Reset forces the engine back to its idle defaults. Module
// deactivation uses this.
func (s *SBA) Reset() {
	s.readOnAddr = false
	s.readOnData = false
	s.autoIncrement = false
	s.access = SBAccess32
	s.address = 0
	s.data = 0
	s.busy = false
	s.remaining = 0
	s.pendingWrite = false
	s.pendingResult = 0
	s.pendingErr = SBErrNone
	s.sbError.Reset()
	s.busyError.Reset()
}

// ReadReg serves a DMI read of one of the sbcs/sbaddress/sbdata
// registers. Reading a payload register during a busy window returns
// the stale value and latches the sticky busy error.
func (s *SBA) ReadReg(addr uint32) uint32 {
	switch addr {
	case RegSBCS:
		return s.packSBCS()
	case RegSBAddress0:
		if s.busy {
			s.busyError.Latch(1)
		}
		return uint32(s.address)
	case RegSBAddress1:
		if s.busy {
			s.busyError.Latch(1)
		}
		return uint32(s.address >> 32)
	case RegSBData0:
		if s.busy {
			s.busyError.Latch(1)
			return uint32(s.data)
		}
		value := uint32(s.data)
		if s.readOnData {
			s.trigger(false)
		}
		return value
	case RegSBData1:
		if s.busy {
			s.busyError.Latch(1)
		}
		return uint32(s.data >> 32)
	}
	return 0
}

// WriteReg serves a DMI write of one of the sbcs/sbaddress/sbdata
// registers. Writes observed during a busy window do not perform the
// intended access and latch the sticky busy error instead.
func (s *SBA) WriteReg(addr, value uint32) {
	if s.busy {
		s.busyError.Latch(1)
		return
	}

	switch addr {
	case RegSBCS:
		s.busyError.Clear((value>>22)&0x1, s.busy)
		s.sbError.Clear((value>>sbcsErrorShift)&sbcsErrorMask, s.busy)
		s.readOnAddr = value&sbcsReadOnAddr != 0
		s.readOnData = value&sbcsReadOnData != 0
		s.autoIncrement = value&sbcsAutoIncrement != 0
		s.access = (value >> sbcsAccessShift) & sbcsAccessMask
	case RegSBAddress0:
		s.address = s.address&^uint64(0xffffffff) | uint64(value)
		if s.readOnAddr {
			s.trigger(false)
		}
	case RegSBAddress1:
		s.address = s.address&0xffffffff | uint64(value)<<32
	case RegSBData0:
		s.data = s.data&^uint64(0xffffffff) | uint64(value)
		s.trigger(true)
	case RegSBData1:
		s.data = s.data&0xffffffff | uint64(value)<<32
	}
}

// trigger issues a bus transaction unless a sticky error holds new
// transactions off.
func (s *SBA) trigger(write bool) {
	if s.sbError.Any() || s.busyError.Any() {
		return
	}

	if s.access > SBAccess64 {
		s.sbError.Latch(uint32(SBErrBadSize))
		return
	}
	size := 1 << s.access
	if s.address%uint64(size) != 0 {
		s.sbError.Latch(uint32(SBErrAlignment))
		return
	}
	if s.bus == nil {
		s.sbError.Latch(uint32(SBErrBadAddress))
		return
	}

	var mask uint64
	if size == 8 {
		mask = ^uint64(0)
	} else {
		mask = uint64(1)<<(size*8) - 1
	}

	result, err := s.bus.Access(s.address, write, s.data&mask, size)
	s.busy = true
	s.remaining = s.bus.Latency()
	if s.remaining < 1 {
		s.remaining = 1
	}
	s.pendingWrite = write
	s.pendingResult = result & mask
	s.pendingErr = err
}

func (s *SBA) packSBCS() uint32 {
	v := uint32(sbcsVersion) << sbcsVersionShift
	v |= s.busyError.Get() << 22
	if s.busy {
		v |= SBCSBusy
	}
	if s.readOnAddr {
		v |= sbcsReadOnAddr
	}
	v |= (s.access & sbcsAccessMask) << sbcsAccessShift
	if s.autoIncrement {
		v |= sbcsAutoIncrement
	}
	if s.readOnData {
		v |= sbcsReadOnData
	}
	v |= (s.sbError.Get() & sbcsErrorMask) << sbcsErrorShift
	v |= sbcsASize << sbcsASizeShift
	v |= sbcsSupportedSizes
	return v
}
