package dmi_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvdebug/dmi"
)

// recordingHandler answers every request with its address and keeps
// the order requests were serviced in.
type recordingHandler struct {
	serviced []dmi.Request
}

func (h *recordingHandler) Handle(req dmi.Request) dmi.Response {
	h.serviced = append(h.serviced, req)
	return dmi.Response{Data: req.Address, Status: dmi.StatusSuccess}
}

var _ = Describe("Channel", func() {
	var (
		handler *recordingHandler
		ch      *dmi.Channel
	)

	BeforeEach(func() {
		handler = &recordingHandler{}
		ch = dmi.NewChannel(handler)
	})

	It("should answer a serviced request with its response", func() {
		Expect(ch.Submit(dmi.Request{Address: 0x11, Op: dmi.OpRead})).To(BeTrue())

		_, ok := ch.Poll()
		Expect(ok).To(BeFalse())

		ch.Tick()
		rsp, ok := ch.Poll()
		Expect(ok).To(BeTrue())
		Expect(rsp.Status).To(Equal(dmi.StatusSuccess))
		Expect(rsp.Data).To(Equal(uint32(0x11)))
	})

	It("should answer in submission order", func() {
		Expect(ch.Submit(dmi.Request{Address: 1, Op: dmi.OpRead})).To(BeTrue())
		ch.Tick()
		Expect(ch.Submit(dmi.Request{Address: 2, Op: dmi.OpRead})).To(BeTrue())
		ch.Tick()

		rsp, ok := ch.Poll()
		Expect(ok).To(BeTrue())
		Expect(rsp.Data).To(Equal(uint32(1)))

		rsp, ok = ch.Poll()
		Expect(ok).To(BeTrue())
		Expect(rsp.Data).To(Equal(uint32(2)))
	})

	It("should back-pressure when full", func() {
		Expect(ch.Submit(dmi.Request{Address: 1, Op: dmi.OpRead})).To(BeTrue())
		ch.Tick()
		Expect(ch.Submit(dmi.Request{Address: 2, Op: dmi.OpRead})).To(BeTrue())

		// Both slots occupied: one response awaiting collection, one
		// request awaiting service.
		Expect(ch.Submit(dmi.Request{Address: 3, Op: dmi.OpRead})).To(BeFalse())
	})

	Describe("overlap", func() {
		It("should drop a request submitted over an unserviced one", func() {
			Expect(ch.Submit(dmi.Request{Address: 1, Op: dmi.OpWrite, Data: 10})).To(BeTrue())
			Expect(ch.Submit(dmi.Request{Address: 2, Op: dmi.OpWrite, Data: 20})).To(BeTrue())

			for i := 0; i < 4; i++ {
				ch.Tick()
			}

			rsp, ok := ch.Poll()
			Expect(ok).To(BeTrue())
			Expect(rsp.Status).To(Equal(dmi.StatusSuccess))

			rsp, ok = ch.Poll()
			Expect(ok).To(BeTrue())
			Expect(rsp.Status).To(Equal(dmi.StatusBusy))

			// The overlapping write never reached the handler.
			Expect(handler.serviced).To(HaveLen(1))
			Expect(handler.serviced[0].Address).To(Equal(uint32(1)))
		})

		It("should keep answering busy until the sticky flag is cleared", func() {
			Expect(ch.Submit(dmi.Request{Address: 1, Op: dmi.OpRead})).To(BeTrue())
			Expect(ch.Submit(dmi.Request{Address: 2, Op: dmi.OpRead})).To(BeTrue())
			Expect(ch.Busy()).To(BeTrue())

			for i := 0; i < 4; i++ {
				ch.Tick()
			}
			ch.Poll()
			ch.Poll()

			// Channel drained, no overlap anymore, still sticky.
			Expect(ch.Submit(dmi.Request{Address: 3, Op: dmi.OpRead})).To(BeTrue())
			ch.Tick()
			rsp, ok := ch.Poll()
			Expect(ok).To(BeTrue())
			Expect(rsp.Status).To(Equal(dmi.StatusBusy))

			ch.ResetBusy()
			Expect(ch.Submit(dmi.Request{Address: 4, Op: dmi.OpRead})).To(BeTrue())
			ch.Tick()
			rsp, ok = ch.Poll()
			Expect(ok).To(BeTrue())
			Expect(rsp.Status).To(Equal(dmi.StatusSuccess))
		})
	})

	It("should drop everything on hard reset", func() {
		Expect(ch.Submit(dmi.Request{Address: 1, Op: dmi.OpRead})).To(BeTrue())
		Expect(ch.Submit(dmi.Request{Address: 2, Op: dmi.OpRead})).To(BeTrue())
		Expect(ch.Busy()).To(BeTrue())

		ch.HardReset()
		Expect(ch.Busy()).To(BeFalse())
		Expect(ch.InFlight()).To(BeZero())
		_, ok := ch.Poll()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Frames", func() {
	It("should round-trip a request through a scan frame", func() {
		req := dmi.Request{Address: 0x38, Data: 0xdeadbeef, Op: dmi.OpWrite}
		Expect(dmi.UnpackRequest(req.Pack(7), 7)).To(Equal(req))
	})

	It("should round-trip a response through a scan frame", func() {
		rsp := dmi.Response{Data: 0x12345678, Status: dmi.StatusBusy}
		Expect(dmi.UnpackResponse(rsp.Pack())).To(Equal(rsp))
	})

	It("should size frames as abits plus 34", func() {
		Expect(dmi.FrameBits(7)).To(Equal(uint(41)))
	})

	It("should mask the address to abits", func() {
		req := dmi.Request{Address: 0xffff, Op: dmi.OpRead}
		got := dmi.UnpackRequest(req.Pack(7), 7)
		Expect(got.Address).To(Equal(uint32(0x7f)))
	})
})

func TestDMI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DMI Suite")
}
