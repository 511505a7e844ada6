// Package dmi defines the Debug Module Interface: the abstract
// request/response protocol through which a debugger accesses the
// debug module's register file, and the channel that carries it
// between the transport and the register file.
package dmi

// Op is the operation field of a DMI request.
type Op uint8

// DMI request operations.
const (
	// OpNop performs no register access and always succeeds.
	OpNop Op = 0
	// OpRead reads the addressed register.
	OpRead Op = 1
	// OpWrite writes the addressed register.
	OpWrite Op = 2
)

// Status is the completion status field of a DMI response.
type Status uint8

// DMI response statuses.
const (
	// StatusSuccess indicates the operation completed and its side
	// effects were applied.
	StatusSuccess Status = 0
	// StatusBusy indicates the operation was observed while a previous
	// operation was still in flight. Its side effects were not applied
	// and the operation must be retried after clearing the sticky busy
	// condition.
	StatusBusy Status = 2
	// StatusFailed indicates the operation completed with an error.
	StatusFailed Status = 3
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBusy:
		return "busy"
	case StatusFailed:
		return "failed"
	}
	return "reserved"
}

// Request is a single DMI register access.
type Request struct {
	// Address selects the debug module register.
	Address uint32

	// Data is the value to write for OpWrite; ignored otherwise.
	Data uint32

	// Op is the requested operation.
	Op Op
}

// Response pairs with exactly one accepted Request.
type Response struct {
	// Data is the value read for read operations; stale or undefined
	// for other operations and non-success statuses.
	Data uint32

	// Status reports how the operation completed.
	Status Status
}

// Wire frame field widths. A DMI scan frame is
// {address[abits], data[32], op[2]}, op in the low bits.
const (
	opBits   = 2
	dataBits = 32
)

// FrameBits returns the width in bits of a DMI scan frame for the
// given address width.
func FrameBits(abits uint) uint {
	return abits + dataBits + opBits
}

// Pack encodes the request into a scan frame.
func (r Request) Pack(abits uint) uint64 {
	addrMask := uint64(1)<<abits - 1
	return (uint64(r.Address)&addrMask)<<(dataBits+opBits) |
		uint64(r.Data)<<opBits |
		uint64(r.Op)&0b11
}

// UnpackRequest decodes a scan frame into a request.
func UnpackRequest(frame uint64, abits uint) Request {
	addrMask := uint64(1)<<abits - 1
	return Request{
		Address: uint32((frame >> (dataBits + opBits)) & addrMask),
		Data:    uint32(frame >> opBits),
		Op:      Op(frame & 0b11),
	}
}

// Pack encodes the response into a scan frame. The address bits of a
// response frame echo nothing and are left zero.
func (r Response) Pack() uint64 {
	return uint64(r.Data)<<opBits | uint64(r.Status)&0b11
}

// UnpackResponse decodes a scan frame into a response.
func UnpackResponse(frame uint64) Response {
	return Response{
		Data:   uint32(frame >> opBits),
		Status: Status(frame & 0b11),
	}
}
