package driver

import (
	"github.com/sarchlab/rvdebug/dmi"
	"github.com/sarchlab/rvdebug/jtag"
)

// Ticker advances one component of the target by one internal clock
// cycle.
type Ticker func()

// ChannelPort drives the debug module directly through its DMI
// channel, with no scan transport in between. Each idle cycle ticks
// the channel and every registered ticker once, so the target makes
// progress whenever the client waits.
type ChannelPort struct {
	ch      *dmi.Channel
	tickers []Ticker
}

// NewChannelPort creates a port over the given channel. The tickers
// run once per idle cycle, after the channel tick.
func NewChannelPort(ch *dmi.Channel, tickers ...Ticker) *ChannelPort {
	return &ChannelPort{ch: ch, tickers: tickers}
}

// Do submits the request and runs the target until its response
// arrives.
func (p *ChannelPort) Do(req dmi.Request) dmi.Response {
	for !p.ch.Submit(req) {
		p.Idle(1)
	}
	for {
		if rsp, ok := p.ch.Poll(); ok {
			return rsp
		}
		p.Idle(1)
	}
}

// ResetBusy clears the channel's sticky busy condition.
func (p *ChannelPort) ResetBusy() {
	p.ch.ResetBusy()
}

// Idle runs the target for the given number of internal clock cycles.
func (p *ChannelPort) Idle(cycles int) {
	for i := 0; i < cycles; i++ {
		p.ch.Tick()
		for _, tick := range p.tickers {
			tick()
		}
	}
}

// JTAGPort drives the debug module through the scan transport. A DMI
// operation costs two scans: one to submit the request, idle cycles
// for the internal domain to service it, and a nop scan to collect the
// response.
type JTAGPort struct {
	framer *jtag.Framer
	idle   int
}

// NewJTAGPort creates a port over the given framer. idle is the number
// of run-test/idle cycles inserted between the submitting scan and the
// collecting scan; the target's dtmcs idle field advertises a
// sufficient value.
func NewJTAGPort(framer *jtag.Framer, idle int) *JTAGPort {
	if idle < 1 {
		idle = 1
	}
	return &JTAGPort{framer: framer, idle: idle}
}

// Do performs one DMI operation over the scan wire.
func (p *JTAGPort) Do(req dmi.Request) dmi.Response {
	p.framer.ScanDMI(req)
	p.framer.IdleCycles(p.idle)
	return p.framer.ScanDMI(dmi.Request{Op: dmi.OpNop})
}

// ResetBusy pulses dmireset through dtmcs, clearing the sticky busy
// condition without disturbing the transaction in flight.
func (p *JTAGPort) ResetBusy() {
	p.framer.WriteDTMCS(jtag.DTMCSDMIReset)
}

// Idle clocks run-test/idle cycles.
func (p *JTAGPort) Idle(cycles int) {
	p.framer.IdleCycles(cycles)
}
