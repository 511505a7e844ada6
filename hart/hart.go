package hart

// Model is one hart as the debug logic sees it: a register file, a
// halted flag and a saved debug program counter. While running, the
// model only advances its program counter; the point is observable
// halt/resume behavior, not instruction semantics.
type Model struct {
	id     int
	regs   RegFile
	halted bool
	dpc    uint32
}

// NewModel creates a hart model.
func NewModel(id int) *Model {
	return &Model{id: id}
}

// ID returns the hart index.
func (m *Model) ID() int {
	return m.id
}

// Halted reports whether the hart is in debug mode.
func (m *Model) Halted() bool {
	return m.halted
}

// Regs exposes the register file.
func (m *Model) Regs() *RegFile {
	return &m.regs
}

// DPC returns the program counter saved on halt.
func (m *Model) DPC() uint32 {
	return m.dpc
}

// SetDPC overwrites the saved program counter; the hart resumes from
// it.
func (m *Model) SetDPC(v uint32) {
	m.dpc = v
}

// halt enters debug mode, saving the program counter.
func (m *Model) halt() {
	m.halted = true
	m.dpc = m.regs.PC
}

// resume leaves debug mode, restarting from the saved program counter.
func (m *Model) resume() {
	m.halted = false
	m.regs.PC = m.dpc
}

// step advances the hart by one cycle while running.
func (m *Model) step() {
	if !m.halted {
		m.regs.PC += 4
	}
}
