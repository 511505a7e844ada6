package driver

import (
	"fmt"

	"github.com/sarchlab/rvdebug/dm"
)

// Activate enables the debug module. Everything else requires an
// active module first.
func (c *Client) Activate() error {
	if err := c.Write(dm.RegDMControl, dm.DMControlActive); err != nil {
		return err
	}
	v, err := c.Read(dm.RegDMControl)
	if err != nil {
		return err
	}
	if v&dm.DMControlActive == 0 {
		return fmt.Errorf("driver: debug module did not activate")
	}
	return nil
}

// Deactivate clears dmactive, resetting the debug module's internal
// state.
func (c *Client) Deactivate() error {
	return c.Write(dm.RegDMControl, 0)
}

// SelectHart directs subsequent hart operations at the given hart.
func (c *Client) SelectHart(hartsel int) {
	c.hartsel = hartsel
}

// SelectedHart returns the hart subsequent operations target.
func (c *Client) SelectedHart() int {
	return c.hartsel
}

func (c *Client) dmcontrol(bits uint32) uint32 {
	return dm.DMControlActive | dm.DMControlHartsel(c.hartsel) | bits
}

// Halt requests the selected hart to halt and waits until dmstatus
// reports it halted, then withdraws the request.
func (c *Client) Halt() error {
	if err := c.Write(dm.RegDMControl, c.dmcontrol(dm.DMControlHaltReq)); err != nil {
		return err
	}
	if err := c.waitDMStatus(dm.DMStatusAllHalted); err != nil {
		return err
	}
	return c.Write(dm.RegDMControl, c.dmcontrol(0))
}

// Resume requests the selected hart to resume and waits for the
// resume acknowledgement, then withdraws the request.
func (c *Client) Resume() error {
	if err := c.Write(dm.RegDMControl, c.dmcontrol(dm.DMControlResumeReq)); err != nil {
		return err
	}
	if err := c.waitDMStatus(dm.DMStatusAllResumeAck); err != nil {
		return err
	}
	return c.Write(dm.RegDMControl, c.dmcontrol(0))
}

// AckHaveReset acknowledges the selected hart's sticky reset flag.
func (c *Client) AckHaveReset() error {
	return c.Write(dm.RegDMControl, c.dmcontrol(dm.DMControlAckHaveReset))
}

// Halted reports whether the selected hart is halted.
func (c *Client) Halted() (bool, error) {
	if err := c.Write(dm.RegDMControl, c.dmcontrol(0)); err != nil {
		return false, err
	}
	v, err := c.Read(dm.RegDMStatus)
	if err != nil {
		return false, err
	}
	return v&dm.DMStatusAllHalted != 0, nil
}

func (c *Client) waitDMStatus(bit uint32) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		v, err := c.Read(dm.RegDMStatus)
		if err != nil {
			return err
		}
		if v&bit != 0 {
			return nil
		}
		c.port.Idle(c.dmiWait)
	}
	return ErrRetriesExhausted
}

// ReadGPR reads general-purpose register x<n> of the selected hart
// through an abstract access-register command. The hart must be
// halted.
func (c *Client) ReadGPR(n int) (uint32, error) {
	cmd := dm.Command{
		Type:     dm.CmdTypeAccessRegister,
		Size:     2,
		Transfer: true,
		Regno:    dm.RegnoGPRBase + uint16(n),
	}
	if err := c.runCommand(cmd); err != nil {
		return 0, err
	}
	return c.Read(dm.RegData0)
}

// WriteGPR writes general-purpose register x<n> of the selected hart.
// The hart must be halted.
func (c *Client) WriteGPR(n int, value uint32) error {
	if err := c.Write(dm.RegData0, value); err != nil {
		return err
	}
	cmd := dm.Command{
		Type:     dm.CmdTypeAccessRegister,
		Size:     2,
		Transfer: true,
		Write:    true,
		Regno:    dm.RegnoGPRBase + uint16(n),
	}
	return c.runCommand(cmd)
}

// ReadDPC reads the selected hart's debug program counter.
func (c *Client) ReadDPC() (uint32, error) {
	cmd := dm.Command{
		Type:     dm.CmdTypeAccessRegister,
		Size:     2,
		Transfer: true,
		Regno:    dm.RegnoDPC,
	}
	if err := c.runCommand(cmd); err != nil {
		return 0, err
	}
	return c.Read(dm.RegData0)
}

// runCommand issues an abstract command and waits for completion. A
// non-zero cmderr is cleared before returning it as an error, so the
// next command is not blocked by the leftover code.
func (c *Client) runCommand(cmd dm.Command) error {
	if err := c.Write(dm.RegCommand, cmd.Encode()); err != nil {
		return err
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		v, err := c.Read(dm.RegAbstractCS)
		if err != nil {
			return err
		}
		if v&dm.AbstractCSBusy != 0 {
			c.port.Idle(c.dmiWait)
			continue
		}
		if e := dm.AbstractCSCmdErr(v); e != dm.CmdErrNone {
			if err := c.Write(dm.RegAbstractCS, dm.CmdErrBits(e)); err != nil {
				return err
			}
			return fmt.Errorf("driver: abstract command: %s", e)
		}
		return nil
	}
	return ErrCommandTimeout
}
