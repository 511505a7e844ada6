package dm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvdebug/dm"
)

// faultyBus fails every access with a configurable error code.
type faultyBus struct {
	err dm.SBError
}

func (b *faultyBus) Access(addr uint64, write bool, data uint64, size int) (uint64, dm.SBError) {
	return 0, b.err
}

func (b *faultyBus) Latency() int {
	return 1
}

var _ = Describe("SBA", func() {
	var d *dm.DebugModule

	newModule := func(bus dm.Bus) *dm.DebugModule {
		m := dm.New(dm.DefaultConfig(), dm.WithBus(bus))
		write(m, dm.RegDMControl, dm.DMControlActive)
		return m
	}

	settle := func(n int) {
		for i := 0; i < n; i++ {
			d.Tick()
		}
	}

	Context("over a memory storage", func() {
		var storage *mem.Storage

		BeforeEach(func() {
			storage = mem.NewStorage(4096)
			d = newModule(dm.NewStorageBus(storage, 2))
		})

		It("should write then read back a word", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(false, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x100)
			write(d, dm.RegSBData0, 0xcafebabe)
			settle(2)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).To(BeZero())

			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x100)
			settle(2)
			Expect(read(d, dm.RegSBData0)).To(Equal(uint32(0xcafebabe)))
		})

		It("should stay busy for the bus latency window", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x0)

			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).NotTo(BeZero())
			settle(1)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).NotTo(BeZero())
			settle(1)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).To(BeZero())
		})

		It("should latch the busy error and hold off new triggers", func() {
			ctrl := dm.PackSBCSControl(true, false, false, dm.SBAccess32)
			write(d, dm.RegSBCS, ctrl)
			write(d, dm.RegSBAddress0, 0x0)

			// Write lands mid-window: dropped, sticky busy error.
			write(d, dm.RegSBData0, 0x1111)
			settle(2)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusyError).NotTo(BeZero())

			// New triggers are suppressed while the flag is latched.
			write(d, dm.RegSBAddress0, 0x0)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).To(BeZero())

			// A control-only write clears nothing; the flag is
			// write-1-to-clear.
			write(d, dm.RegSBCS, ctrl)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusyError).NotTo(BeZero())

			write(d, dm.RegSBCS, ctrl|dm.SBCSBusyError)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusyError).To(BeZero())

			write(d, dm.RegSBAddress0, 0x0)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).NotTo(BeZero())
		})

		It("should return the stale word on a data read during the busy window", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(false, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x40)
			write(d, dm.RegSBData0, 0x2222)
			settle(2)

			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x40)
			Expect(read(d, dm.RegSBData0)).To(Equal(uint32(0x2222)))
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusyError).NotTo(BeZero())
		})

		It("should auto-increment the address after a completed access", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, true, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x10)
			settle(2)
			Expect(read(d, dm.RegSBAddress0)).To(Equal(uint32(0x14)))
		})

		It("should chain reads through readondata", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(false, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x20)
			write(d, dm.RegSBData0, 0xaaaa0001)
			settle(2)
			write(d, dm.RegSBAddress0, 0x24)
			write(d, dm.RegSBData0, 0xaaaa0002)
			settle(2)

			write(d, dm.RegSBCS, dm.PackSBCSControl(true, true, true, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x20)
			settle(2)

			// The data read returns the first word and triggers the next.
			Expect(read(d, dm.RegSBData0)).To(Equal(uint32(0xaaaa0001)))
			settle(2)
			Expect(read(d, dm.RegSBData0)).To(Equal(uint32(0xaaaa0002)))
		})

		It("should transfer 64-bit values through both data halves", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(false, false, false, dm.SBAccess64))
			write(d, dm.RegSBAddress0, 0x200)
			write(d, dm.RegSBData1, 0x01234567)
			write(d, dm.RegSBData0, 0x89abcdef)
			settle(2)

			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess64))
			write(d, dm.RegSBAddress0, 0x200)
			settle(2)
			Expect(read(d, dm.RegSBData1)).To(Equal(uint32(0x01234567)))
			Expect(read(d, dm.RegSBData0)).To(Equal(uint32(0x89abcdef)))
		})

		It("should latch an alignment error and suppress further triggers", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x3)
			Expect(dm.SBCSError(read(d, dm.RegSBCS))).To(Equal(dm.SBErrAlignment))

			// Held off while the error stands.
			write(d, dm.RegSBAddress0, 0x4)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).To(BeZero())

			write(d, dm.RegSBCS,
				dm.PackSBCSControl(true, false, false, dm.SBAccess32)|
					dm.SBCSErrorBits(dm.SBErrAlignment))
			Expect(dm.SBCSError(read(d, dm.RegSBCS))).To(Equal(dm.SBErrNone))

			write(d, dm.RegSBAddress0, 0x4)
			Expect(read(d, dm.RegSBCS) & dm.SBCSBusy).NotTo(BeZero())
		})

		It("should report a bad address from the fabric", func() {
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x10000)
			settle(2)
			Expect(dm.SBCSError(read(d, dm.RegSBCS))).To(Equal(dm.SBErrBadAddress))
		})
	})

	Context("over a faulty fabric", func() {
		It("should latch the fabric's error code at completion", func() {
			d = newModule(&faultyBus{err: dm.SBErrTimeout})
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x0)
			settle(1)
			Expect(dm.SBCSError(read(d, dm.RegSBCS))).To(Equal(dm.SBErrTimeout))
		})

		It("should not advance the address on a failed access", func() {
			d = newModule(&faultyBus{err: dm.SBErrTimeout})
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, true, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x10)
			settle(1)
			Expect(read(d, dm.RegSBAddress0)).To(Equal(uint32(0x10)))
		})
	})

	Context("without a fabric", func() {
		It("should fail with a bad address", func() {
			d = newModule(nil)
			write(d, dm.RegSBCS, dm.PackSBCSControl(true, false, false, dm.SBAccess32))
			write(d, dm.RegSBAddress0, 0x0)
			Expect(dm.SBCSError(read(d, dm.RegSBCS))).To(Equal(dm.SBErrBadAddress))
		})
	})
})
