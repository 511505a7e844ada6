// Package hart provides a minimal hart execution model: enough state
// and debug behavior for the debug module to halt, inspect and resume
// it.
package hart

// RegFile represents a RISC-V hart register file.
// It contains the general-purpose registers x0-x31 and the program
// counter.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is the zero register which always reads as 0.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 returns 0.
// Registers >= 32 return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 and to
// registers >= 32 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}
