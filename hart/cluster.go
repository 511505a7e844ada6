package hart

import (
	"github.com/sarchlab/rvdebug/dm"
)

// Cluster ticks a set of hart models against a debug module: it
// consumes halt and resume requests, reports the resulting status
// transitions back, and executes abstract access-register commands
// against the halted hart's state.
//
// Commands complete after a configurable number of ticks so the busy
// window is observable through abstractcs.
type Cluster struct {
	module *dm.DebugModule
	harts  []*Model
	delay  int

	pending   bool
	remaining int
	command   uint32
}

// ClusterOption configures a Cluster.
type ClusterOption func(*Cluster)

// WithCommandDelay sets how many ticks an abstract command stays busy
// before completing. The minimum is one tick.
func WithCommandDelay(ticks int) ClusterOption {
	return func(c *Cluster) {
		c.delay = ticks
	}
}

// NewCluster creates n hart models bound to the given debug module.
// The caller attaches the cluster as the module's executor.
func NewCluster(module *dm.DebugModule, n int, opts ...ClusterOption) *Cluster {
	c := &Cluster{
		module: module,
		delay:  1,
	}
	for i := 0; i < n; i++ {
		c.harts = append(c.harts, NewModel(i))
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.delay < 1 {
		c.delay = 1
	}
	return c
}

// Hart returns hart model i, or nil if it does not exist.
func (c *Cluster) Hart(i int) *Model {
	if i < 0 || i >= len(c.harts) {
		return nil
	}
	return c.harts[i]
}

// Len returns the number of harts.
func (c *Cluster) Len() int {
	return len(c.harts)
}

// Execute accepts an abstract command from the debug module. The
// module stays busy until a later tick completes it.
func (c *Cluster) Execute(command uint32) {
	c.pending = true
	c.remaining = c.delay
	c.command = command
}

// Tick advances every hart by one cycle, applying pending halt and
// resume requests, then makes progress on the running abstract
// command.
func (c *Cluster) Tick() {
	hv := c.module.Harts()
	for i, h := range c.harts {
		if hv.HaltRequested(i) && !h.Halted() {
			h.halt()
			c.module.ReportHalted(i)
		}
		if hv.ResumeRequested(i) && h.Halted() {
			h.resume()
			c.module.ReportResumed(i)
		}
		h.step()
	}

	if !c.pending {
		return
	}
	c.remaining--
	if c.remaining > 0 {
		return
	}
	c.pending = false
	c.complete()
}

// complete finishes the abstract command against the selected hart.
func (c *Cluster) complete() {
	cmd := dm.DecodeCommand(c.command)

	if cmd.Type != dm.CmdTypeAccessRegister {
		c.module.CommandError(dm.CmdErrNotSupported)
		return
	}
	if cmd.PostExec || cmd.PostIncrement {
		c.module.CommandError(dm.CmdErrNotSupported)
		return
	}
	if !cmd.Transfer {
		c.module.CommandDone()
		return
	}
	if cmd.Size != 2 {
		c.module.CommandError(dm.CmdErrNotSupported)
		return
	}

	h := c.Hart(c.module.SelectedHart())
	if h == nil || !h.Halted() {
		c.module.CommandError(dm.CmdErrHaltResume)
		return
	}

	switch {
	case cmd.Regno == dm.RegnoDPC:
		if cmd.Write {
			h.SetDPC(c.module.DataWord(0))
		} else {
			c.module.SetDataWord(0, h.DPC())
		}
	case cmd.Regno >= dm.RegnoGPRBase && cmd.Regno < dm.RegnoGPRBase+32:
		reg := uint8(cmd.Regno - dm.RegnoGPRBase)
		if cmd.Write {
			h.Regs().WriteReg(reg, c.module.DataWord(0))
		} else {
			c.module.SetDataWord(0, h.Regs().ReadReg(reg))
		}
	default:
		c.module.CommandError(dm.CmdErrNotSupported)
		return
	}
	c.module.CommandDone()
}
