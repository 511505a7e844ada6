package main

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvdebug/dm"
	"github.com/sarchlab/rvdebug/dmi"
	"github.com/sarchlab/rvdebug/driver"
	"github.com/sarchlab/rvdebug/hart"
	"github.com/sarchlab/rvdebug/jtag"
)

// buildTarget wires the full stack the way main does, driven over the
// scan transport.
func buildTarget(config *TargetConfig) (*driver.Client, *hart.Cluster, *mem.Storage) {
	storage := mem.NewStorage(config.MemSizeKB * 1024)
	module := dm.New(
		dm.Config{
			NumHarts:    config.Harts,
			DataCount:   dm.MaxDataCount,
			ProgBufSize: dm.MaxProgBufSize,
		},
		dm.WithBus(dm.NewStorageBus(storage, config.BusLatency)),
	)
	cluster := hart.NewCluster(
		module, config.Harts,
		hart.WithCommandDelay(config.CommandDelay),
	)
	module.AttachExecutor(cluster)
	channel := dmi.NewChannel(module)

	tickTarget := func() {
		channel.Tick()
		module.Tick()
		cluster.Tick()
	}
	dtm := jtag.NewDTM(
		channel, dmiABits,
		jtag.WithIdleHint(uint32(config.IdleHint)),
		jtag.WithTicker(tickTarget, config.ClockRatio),
	)
	framer := jtag.NewFramer(dtm, dmiABits)
	framer.ResetSequence()

	port := driver.NewJTAGPort(framer, config.IdleHint)
	return driver.New(port, driver.WithSeedWait(config.SeedWait)), cluster, storage
}

var _ = Describe("Target over JTAG", func() {
	var (
		client  *driver.Client
		cluster *hart.Cluster
		storage *mem.Storage
	)

	BeforeEach(func() {
		config := DefaultTargetConfig()
		config.Harts = 2
		client, cluster, storage = buildTarget(config)
		Expect(client.Activate()).To(Succeed())
	})

	It("should debug a hart end to end over the scan wire", func() {
		Expect(client.Halt()).To(Succeed())
		Expect(cluster.Hart(0).Halted()).To(BeTrue())

		Expect(client.WriteGPR(10, 0x2a)).To(Succeed())
		v, err := client.ReadGPR(10)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x2a)))

		Expect(client.Resume()).To(Succeed())
		Expect(cluster.Hart(0).Halted()).To(BeFalse())
	})

	It("should reach target memory over the scan wire", func() {
		Expect(client.WriteSystemBus64(0x80, 0xfeedface_00c0ffee)).To(Succeed())

		raw, err := storage.Read(0x80, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(Equal([]byte{0xee, 0xff, 0xc0, 0x00, 0xce, 0xfa, 0xed, 0xfe}))

		v, err := client.ReadSystemBus64(0x80)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0xfeedface_00c0ffee)))
	})

	It("should run with a faster internal clock", func() {
		config := DefaultTargetConfig()
		config.ClockRatio = 4
		client, cluster, _ = buildTarget(config)

		Expect(client.Activate()).To(Succeed())
		Expect(client.Halt()).To(Succeed())
		Expect(cluster.Hart(0).Halted()).To(BeTrue())
	})
})
