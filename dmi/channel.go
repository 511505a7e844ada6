package dmi

// Handler consumes accepted requests and produces exactly one response
// per request. The debug module's register file implements this.
type Handler interface {
	Handle(Request) Response
}

// ChannelDepth is the number of transactions a Channel holds: one
// response awaiting collection plus one request awaiting service.
const ChannelDepth = 2

type channelEntry struct {
	req  Request
	rsp  Response
	done bool
}

// Channel is the in-order, back-pressured queue between the scan
// transport and the register file. It is the sole synchronization
// point between the (slower) scan clock domain and the internal clock
// domain: the transport submits and polls, the internal domain calls
// Tick to service requests.
//
// Submitting a request while a previous one is still unserviced does
// not overlap the two: the new request is dropped, answered with
// StatusBusy, and the channel latches a sticky busy condition. Every
// subsequent submission keeps answering busy until ResetBusy is
// called, so the requester cannot miss the race.
type Channel struct {
	handler Handler
	entries []channelEntry
	sticky  bool
}

// NewChannel creates a channel feeding the given handler.
func NewChannel(handler Handler) *Channel {
	return &Channel{
		handler: handler,
		entries: make([]channelEntry, 0, ChannelDepth),
	}
}

// Submit offers a request to the channel. It returns false when the
// channel is full; the request is not accepted and no response will
// exist for it (back-pressure, not data loss).
//
// An accepted request is answered exactly once, in submission order.
// If the channel is sticky-busy, or a previously accepted request has
// not been serviced yet, the request's side effects are not applied
// and its response carries StatusBusy.
func (c *Channel) Submit(req Request) bool {
	if len(c.entries) >= ChannelDepth {
		return false
	}

	if c.sticky || c.pending() > 0 {
		c.sticky = true
		c.entries = append(c.entries, channelEntry{
			rsp:  Response{Status: StatusBusy},
			done: true,
		})
		return true
	}

	c.entries = append(c.entries, channelEntry{req: req})
	return true
}

// Tick advances the internal clock domain by one cycle, servicing at
// most one pending request.
func (c *Channel) Tick() {
	for i := range c.entries {
		if c.entries[i].done {
			continue
		}
		c.entries[i].rsp = c.handler.Handle(c.entries[i].req)
		c.entries[i].done = true
		return
	}
}

// Poll collects the oldest response if one has been produced.
func (c *Channel) Poll() (Response, bool) {
	if len(c.entries) == 0 || !c.entries[0].done {
		return Response{}, false
	}
	rsp := c.entries[0].rsp
	c.entries = c.entries[1:]
	return rsp, true
}

// Pending reports how many accepted requests are still unserviced.
func (c *Channel) Pending() int {
	return c.pending()
}

// InFlight reports how many accepted requests have not been collected.
func (c *Channel) InFlight() int {
	return len(c.entries)
}

// Busy reports whether the sticky busy condition is latched.
func (c *Channel) Busy() bool {
	return c.sticky
}

// SetBusy latches the sticky busy condition. The transport uses this
// when it observes an overlap the channel itself cannot see, such as
// collecting a response before one has been produced.
func (c *Channel) SetBusy() {
	c.sticky = true
}

// ResetBusy clears the sticky busy condition. The requester must call
// this before retrying a busy operation; responses keep reporting
// StatusBusy otherwise.
func (c *Channel) ResetBusy() {
	c.sticky = false
}

// HardReset drops all channel state, including queued transactions.
// In-flight requests will never be answered.
func (c *Channel) HardReset() {
	c.entries = c.entries[:0]
	c.sticky = false
}

func (c *Channel) pending() int {
	n := 0
	for i := range c.entries {
		if !c.entries[i].done {
			n++
		}
	}
	return n
}
