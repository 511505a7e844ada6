// Package main provides the entry point for rvdebug.
// rvdebug wires a simulated RISC-V debug target to an interactive
// debugger console, either directly through the DMI channel or through
// the full JTAG scan transport.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvdebug/dm"
	"github.com/sarchlab/rvdebug/dmi"
	"github.com/sarchlab/rvdebug/driver"
	"github.com/sarchlab/rvdebug/hart"
	"github.com/sarchlab/rvdebug/jtag"
	"github.com/sarchlab/rvdebug/loader"
)

var (
	configPath = flag.String("config", "", "Path to target configuration JSON file")
	useJTAG    = flag.Bool("jtag", false, "Drive the target through the JTAG scan transport")
	verbose    = flag.Bool("v", false, "Verbose output")
)

// dmiABits is the DMI address width; the register map tops out at
// haltsum0 (0x40).
const dmiABits = 7

func main() {
	flag.Parse()

	config := DefaultTargetConfig()
	if *configPath != "" {
		var err error
		config, err = LoadTargetConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading target config: %v\n", err)
			os.Exit(1)
		}
	}

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

	if flag.NArg() > 0 {
		programPath := flag.Arg(0)
		prog, err := loader.Load(programPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
			os.Exit(1)
		}
		if err := prog.Install(storage); err != nil {
			fmt.Fprintf(os.Stderr, "Error installing program: %v\n", err)
			os.Exit(1)
		}
		for i := 0; i < cluster.Len(); i++ {
			cluster.Hart(i).Regs().PC = uint32(prog.EntryPoint)
		}
		if *verbose {
			fmt.Printf("Loaded: %s\n", programPath)
			fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
			fmt.Printf("Segments: %d\n", len(prog.Segments))
		}
	}

	var port driver.Port
	if *useJTAG {
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
		if *verbose {
			fmt.Printf("IDCODE: 0x%08X\n", framer.ReadIDCode())
		}
		port = driver.NewJTAGPort(framer, config.IdleHint)
	} else {
		port = driver.NewChannelPort(channel, module.Tick, cluster.Tick)
	}

	client := driver.New(port, driver.WithSeedWait(config.SeedWait))
	if err := client.Activate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error activating debug module: %v\n", err)
		os.Exit(1)
	}

	if err := runConsole(client, cluster); err != nil {
		fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
		os.Exit(1)
	}
}
