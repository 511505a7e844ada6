package dm

import (
	"encoding/binary"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// StorageBus adapts an Akita memory storage to the system bus fabric
// interface, with a fixed grant-to-response latency in internal clock
// cycles.
type StorageBus struct {
	storage *mem.Storage
	latency int
}

// NewStorageBus wraps storage with the given completion latency. A
// latency below one cycle is rounded up to one.
func NewStorageBus(storage *mem.Storage, latency int) *StorageBus {
	if latency < 1 {
		latency = 1
	}
	return &StorageBus{storage: storage, latency: latency}
}

// Latency returns the busy-window length in internal clock cycles.
func (b *StorageBus) Latency() int {
	return b.latency
}

// Access performs one bus transaction against the backing storage.
// Accesses outside the storage capacity report SBErrBadAddress.
func (b *StorageBus) Access(
	addr uint64,
	write bool,
	data uint64,
	size int,
) (uint64, SBError) {
	if write {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, data)
		if err := b.storage.Write(addr, buf[:size]); err != nil {
			return 0, SBErrBadAddress
		}
		return 0, SBErrNone
	}

	raw, err := b.storage.Read(addr, uint64(size))
	if err != nil {
		return 0, SBErrBadAddress
	}
	buf := make([]byte, 8)
	copy(buf, raw)
	return binary.LittleEndian.Uint64(buf), SBErrNone
}
