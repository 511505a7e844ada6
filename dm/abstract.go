package dm

// Abstract command types.
const (
	// CmdTypeAccessRegister transfers a value between a data register
	// window and a register of the selected hart.
	CmdTypeAccessRegister uint8 = 0
	// CmdTypeQuickAccess and CmdTypeAccessMemory are recognized but
	// not implemented; issuing them reports CmdErrNotSupported.
	CmdTypeQuickAccess  uint8 = 1
	CmdTypeAccessMemory uint8 = 2
)

// Abstract register numbers reachable through access-register
// commands.
const (
	// RegnoDPC is the debug program counter CSR.
	RegnoDPC uint16 = 0x07b1
	// RegnoGPRBase maps x0..x31 to 0x1000..0x101f.
	RegnoGPRBase uint16 = 0x1000
)

// Command is a decoded abstract command word.
type Command struct {
	// Type is the command type field (bits 31:24).
	Type uint8

	// Size is the aarsize field: log2 of the transfer width in bytes.
	Size uint8

	// PostIncrement requests regno to advance after the transfer.
	PostIncrement bool

	// PostExec requests program buffer execution after the transfer.
	PostExec bool

	// Transfer enables the register transfer itself.
	Transfer bool

	// Write moves data0 into the register; otherwise the register is
	// read into data0.
	Write bool

	// Regno selects the target register.
	Regno uint16
}

// DecodeCommand splits an abstract command word into its fields.
func DecodeCommand(word uint32) Command {
	return Command{
		Type:          uint8(word >> 24),
		Size:          uint8((word >> 20) & 0x7),
		PostIncrement: word&(1<<19) != 0,
		PostExec:      word&(1<<18) != 0,
		Transfer:      word&(1<<17) != 0,
		Write:         word&(1<<16) != 0,
		Regno:         uint16(word),
	}
}

// Encode composes the abstract command word for the fields.
func (c Command) Encode() uint32 {
	word := uint32(c.Type)<<24 | uint32(c.Size&0x7)<<20 | uint32(c.Regno)
	if c.PostIncrement {
		word |= 1 << 19
	}
	if c.PostExec {
		word |= 1 << 18
	}
	if c.Transfer {
		word |= 1 << 17
	}
	if c.Write {
		word |= 1 << 16
	}
	return word
}

// Executor consumes abstract command execution requests. The debug
// module raises exactly one request at a time and keeps the command,
// data and program buffer words stable until the executor reports
// completion through CommandDone or CommandError.
type Executor interface {
	Execute(command uint32)
}
