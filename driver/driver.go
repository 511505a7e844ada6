// Package driver implements the client-side protocol discipline a DMI
// requester must apply, independent of which transport carries it:
// busy retry with geometric backoff, and the guarded multi-register
// sequences for wide system bus accesses and abstract commands.
package driver

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvdebug/dm"
	"github.com/sarchlab/rvdebug/dmi"
)

// Port is one DMI round trip plus the transport controls the retry
// discipline needs.
type Port interface {
	// Do performs one DMI operation and returns its response.
	Do(req dmi.Request) dmi.Response
	// ResetBusy clears the transport's sticky busy condition.
	ResetBusy()
	// Idle runs the given number of idle cycles.
	Idle(cycles int)
}

// DefaultSeedWait is the initial backoff counter value.
const DefaultSeedWait = 8

// DefaultMaxRetries bounds each retry loop.
const DefaultMaxRetries = 10

// ErrRetriesExhausted reports that an operation stayed busy through
// every allowed retry.
var ErrRetriesExhausted = errors.New("driver: retries exhausted")

// ErrCommandTimeout reports that an abstract command never left the
// busy state.
var ErrCommandTimeout = errors.New("driver: abstract command timeout")

// Client drives a debug module through a DMI port.
//
// The two wait counters are deliberately independent: dmiWait bounds
// transport contention (the channel answered busy), busWait bounds
// bus-engine contention (sbcs showed sbbusy/sbbusyerror after the
// fact). Both persist across operations and double on every hit.
type Client struct {
	port Port

	dmiWait    int
	busWait    int
	maxRetries int
	hartsel    int
}

// Option configures a Client.
type Option func(*Client)

// WithSeedWait overrides the initial backoff counter value.
func WithSeedWait(cycles int) Option {
	return func(c *Client) {
		c.dmiWait = cycles
		c.busWait = cycles
	}
}

// WithMaxRetries overrides the retry bound.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// New creates a client over the given port.
func New(port Port, opts ...Option) *Client {
	c := &Client{
		port:       port,
		dmiWait:    DefaultSeedWait,
		busWait:    DefaultSeedWait,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DMIWait returns the current transport-level wait counter.
func (c *Client) DMIWait() int {
	return c.dmiWait
}

// BusWait returns the current bus-level wait counter.
func (c *Client) BusWait() int {
	return c.busWait
}

// Read performs a DMI read with busy retry. Do not use it for reads
// with side effects; retrying those duplicates the effect. Use
// ReadOnce and handle the busy status at the call site instead.
func (c *Client) Read(addr uint32) (uint32, error) {
	return c.retry(dmi.Request{Address: addr, Op: dmi.OpRead})
}

// Write performs a DMI write with busy retry.
func (c *Client) Write(addr, value uint32) error {
	_, err := c.retry(dmi.Request{Address: addr, Data: value, Op: dmi.OpWrite})
	return err
}

// ReadOnce performs a single DMI read with no retry, for reads whose
// side effects must not be duplicated.
func (c *Client) ReadOnce(addr uint32) (uint32, dmi.Status) {
	rsp := c.port.Do(dmi.Request{Address: addr, Op: dmi.OpRead})
	return rsp.Data, rsp.Status
}

// retry resubmits the operation until a non-busy status arrives. On
// busy: clear the sticky condition, double the transport wait counter,
// idle that long, resubmit.
func (c *Client) retry(req dmi.Request) (uint32, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		rsp := c.port.Do(req)
		switch rsp.Status {
		case dmi.StatusSuccess:
			return rsp.Data, nil
		case dmi.StatusBusy:
			c.backoffDMI()
		default:
			return 0, fmt.Errorf("driver: dmi access of %#x: %s",
				req.Address, rsp.Status)
		}
	}
	return 0, ErrRetriesExhausted
}

func (c *Client) backoffDMI() {
	c.port.ResetBusy()
	c.dmiWait *= 2
	c.port.Idle(c.dmiWait)
}

func (c *Client) backoffBus() {
	c.busWait *= 2
	c.port.Idle(c.busWait)
}

// ReadSystemBus64 performs the wide (double-word) bus read: an
// address write that triggers the bus read, then the two data halves,
// high word first. The sequence guards two independent races. A busy
// DMI response on either half restarts the whole sequence after a
// transport-level backoff. A bus engine that was still busy when the
// halves were read is only detectable after the fact from sbcs; that
// restarts the sequence from the address write after clearing the
// sticky flag and a bus-level backoff.
func (c *Client) ReadSystemBus64(addr uint64) (uint64, error) {
	sbcs := dm.PackSBCSControl(true, false, false, dm.SBAccess64)
	if err := c.Write(dm.RegSBCS, sbcs); err != nil {
		return 0, err
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.Write(dm.RegSBAddress1, uint32(addr>>32)); err != nil {
			return 0, err
		}
		// The low address word is the trigger.
		if err := c.Write(dm.RegSBAddress0, uint32(addr)); err != nil {
			return 0, err
		}
		// Give the engine its busy window before collecting; the sbcs
		// check below still guards the case where this was not enough.
		c.port.Idle(c.busWait)

		hi, status := c.ReadOnce(dm.RegSBData1)
		if status == dmi.StatusBusy {
			c.backoffDMI()
			continue
		}
		lo, status := c.ReadOnce(dm.RegSBData0)
		if status == dmi.StatusBusy {
			c.backoffDMI()
			continue
		}

		check, err := c.Read(dm.RegSBCS)
		if err != nil {
			return 0, err
		}
		if check&(dm.SBCSBusy|dm.SBCSBusyError) != 0 {
			// The engine had not finished when the halves were read:
			// the data is stale. Clearing the sticky flag is
			// write-1-to-clear, so repeating it is harmless.
			if err := c.Write(dm.RegSBCS, sbcs|dm.SBCSBusyError); err != nil {
				return 0, err
			}
			c.backoffBus()
			continue
		}
		if e := dm.SBCSError(check); e != dm.SBErrNone {
			return 0, fmt.Errorf("driver: system bus read of %#x: %s", addr, e)
		}

		return uint64(hi)<<32 | uint64(lo), nil
	}
	return 0, ErrRetriesExhausted
}

// WriteSystemBus64 performs the wide bus write: address, high data
// word, then the low data word that triggers the transaction, with
// the same after-the-fact bus busy check as the wide read.
func (c *Client) WriteSystemBus64(addr, value uint64) error {
	sbcs := dm.PackSBCSControl(false, false, false, dm.SBAccess64)
	if err := c.Write(dm.RegSBCS, sbcs); err != nil {
		return err
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.Write(dm.RegSBAddress1, uint32(addr>>32)); err != nil {
			return err
		}
		if err := c.Write(dm.RegSBAddress0, uint32(addr)); err != nil {
			return err
		}
		if err := c.Write(dm.RegSBData1, uint32(value>>32)); err != nil {
			return err
		}
		if err := c.Write(dm.RegSBData0, uint32(value)); err != nil {
			return err
		}

		check, err := c.Read(dm.RegSBCS)
		if err != nil {
			return err
		}
		if check&(dm.SBCSBusy|dm.SBCSBusyError) != 0 {
			if check&dm.SBCSBusy != 0 {
				// Still in flight; give it time rather than retrying.
				c.backoffBus()
				check, err = c.Read(dm.RegSBCS)
				if err != nil {
					return err
				}
			}
			if check&dm.SBCSBusyError != 0 {
				if err := c.Write(dm.RegSBCS, sbcs|dm.SBCSBusyError); err != nil {
					return err
				}
				c.backoffBus()
				continue
			}
		}
		if e := dm.SBCSError(check); e != dm.SBErrNone {
			return fmt.Errorf("driver: system bus write of %#x: %s", addr, e)
		}
		return nil
	}
	return ErrRetriesExhausted
}

// ReadSystemBus32 performs a single-word bus read.
func (c *Client) ReadSystemBus32(addr uint64) (uint32, error) {
	sbcs := dm.PackSBCSControl(true, false, false, dm.SBAccess32)
	if err := c.Write(dm.RegSBCS, sbcs); err != nil {
		return 0, err
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.Write(dm.RegSBAddress1, uint32(addr>>32)); err != nil {
			return 0, err
		}
		if err := c.Write(dm.RegSBAddress0, uint32(addr)); err != nil {
			return 0, err
		}
		c.port.Idle(c.busWait)

		value, status := c.ReadOnce(dm.RegSBData0)
		if status == dmi.StatusBusy {
			c.backoffDMI()
			continue
		}

		check, err := c.Read(dm.RegSBCS)
		if err != nil {
			return 0, err
		}
		if check&(dm.SBCSBusy|dm.SBCSBusyError) != 0 {
			if err := c.Write(dm.RegSBCS, sbcs|dm.SBCSBusyError); err != nil {
				return 0, err
			}
			c.backoffBus()
			continue
		}
		if e := dm.SBCSError(check); e != dm.SBErrNone {
			return 0, fmt.Errorf("driver: system bus read of %#x: %s", addr, e)
		}
		return value, nil
	}
	return 0, ErrRetriesExhausted
}
