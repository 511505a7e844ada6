package driver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvdebug/dm"
	"github.com/sarchlab/rvdebug/dmi"
	"github.com/sarchlab/rvdebug/driver"
	"github.com/sarchlab/rvdebug/hart"
)

var _ = Describe("Client over a live target", func() {
	var (
		cluster *hart.Cluster
		client  *driver.Client
	)

	BeforeEach(func() {
		storage := mem.NewStorage(4096)
		module := dm.New(
			dm.Config{NumHarts: 2, DataCount: 2, ProgBufSize: 2},
			dm.WithBus(dm.NewStorageBus(storage, 2)),
		)
		cluster = hart.NewCluster(module, 2, hart.WithCommandDelay(3))
		module.AttachExecutor(cluster)
		channel := dmi.NewChannel(module)

		port := driver.NewChannelPort(channel, module.Tick, cluster.Tick)
		client = driver.New(port)
		Expect(client.Activate()).To(Succeed())
	})

	It("should halt and resume a hart", func() {
		Expect(client.Halt()).To(Succeed())
		Expect(cluster.Hart(0).Halted()).To(BeTrue())

		halted, err := client.Halted()
		Expect(err).NotTo(HaveOccurred())
		Expect(halted).To(BeTrue())

		Expect(client.Resume()).To(Succeed())
		Expect(cluster.Hart(0).Halted()).To(BeFalse())
	})

	It("should only affect the selected hart", func() {
		client.SelectHart(1)
		Expect(client.Halt()).To(Succeed())
		Expect(cluster.Hart(1).Halted()).To(BeTrue())
		Expect(cluster.Hart(0).Halted()).To(BeFalse())
	})

	It("should read and write registers of a halted hart", func() {
		Expect(client.Halt()).To(Succeed())

		Expect(client.WriteGPR(5, 0xdeadbeef)).To(Succeed())
		v, err := client.ReadGPR(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0xdeadbeef)))

		// x0 stays hardwired to zero.
		Expect(client.WriteGPR(0, 0xffff)).To(Succeed())
		v, err = client.ReadGPR(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())
	})

	It("should read the saved program counter", func() {
		cluster.Hart(0).Regs().PC = 0x8000_0000
		Expect(client.Halt()).To(Succeed())

		pc, err := client.ReadDPC()
		Expect(err).NotTo(HaveOccurred())
		Expect(pc).To(Equal(uint32(0x8000_0000)))
	})

	It("should refuse register access on a running hart", func() {
		_, err := client.ReadGPR(5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("halt/resume"))
	})

	It("should read and write target memory over the system bus", func() {
		Expect(client.WriteSystemBus64(0x100, 0x1122334455667788)).To(Succeed())

		v, err := client.ReadSystemBus64(0x100)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0x1122334455667788)))

		lo, err := client.ReadSystemBus32(0x100)
		Expect(err).NotTo(HaveOccurred())
		Expect(lo).To(Equal(uint32(0x55667788)))
	})
})
