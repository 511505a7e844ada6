package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sarchlab/rvdebug/driver"
	"github.com/sarchlab/rvdebug/hart"
)

// runConsole reads debugger commands interactively until quit or EOF.
func runConsole(client *driver.Client, cluster *hart.Cluster) error {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	fmt.Println("rvdebug console; type 'help' for commands")

	for {
		input, err := line.Prompt("(rvdebug) ")
		if err != nil {
			// Ctrl-C or EOF ends the session.
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if input == "quit" || input == "exit" {
			return nil
		}

		if err := dispatch(client, cluster, strings.Fields(input)); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func dispatch(client *driver.Client, cluster *hart.Cluster, args []string) error {
	switch args[0] {
	case "help":
		printHelp()
		return nil
	case "hart":
		return cmdHart(client, cluster, args[1:])
	case "halt":
		return client.Halt()
	case "resume":
		return client.Resume()
	case "status":
		return cmdStatus(client)
	case "reg":
		return cmdReg(client, args[1:])
	case "dpc":
		return cmdDPC(client)
	case "mem":
		return cmdMem(client, args[1:])
	case "mem64":
		return cmdMem64(client, args[1:])
	}
	return fmt.Errorf("unknown command %q; type 'help'", args[0])
}

func printHelp() {
	fmt.Print(`Commands:
  hart <n>            select hart n
  halt                halt the selected hart
  resume              resume the selected hart
  status              show the selected hart's status
  reg <n> [value]     read or write x<n> of the halted hart
  dpc                 read the halted hart's program counter
  mem <addr>          read a 32-bit word over the system bus
  mem64 <addr> [val]  read or write a 64-bit word over the system bus
  quit                leave the console
`)
}

func cmdHart(client *driver.Client, cluster *hart.Cluster, args []string) error {
	if len(args) < 1 {
		fmt.Printf("hart %d selected of %d\n", client.SelectedHart(), cluster.Len())
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad hart index %q", args[0])
	}
	if n < 0 || n >= cluster.Len() {
		return fmt.Errorf("hart %d does not exist", n)
	}
	client.SelectHart(n)
	return nil
}

func cmdStatus(client *driver.Client) error {
	halted, err := client.Halted()
	if err != nil {
		return err
	}
	state := "running"
	if halted {
		state = "halted"
	}
	fmt.Printf("hart %d: %s\n", client.SelectedHart(), state)
	return nil
}

func cmdReg(client *driver.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: reg <n> [value]")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > 31 {
		return fmt.Errorf("bad register index %q", args[0])
	}
	if len(args) >= 2 {
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}
		return client.WriteGPR(n, uint32(value))
	}
	value, err := client.ReadGPR(n)
	if err != nil {
		return err
	}
	fmt.Printf("x%d = 0x%08X\n", n, value)
	return nil
}

func cmdDPC(client *driver.Client) error {
	value, err := client.ReadDPC()
	if err != nil {
		return err
	}
	fmt.Printf("dpc = 0x%08X\n", value)
	return nil
}

func cmdMem(client *driver.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mem <addr>")
	}
	addr, err := parseValue(args[0])
	if err != nil {
		return err
	}
	value, err := client.ReadSystemBus32(addr)
	if err != nil {
		return err
	}
	fmt.Printf("[0x%08X] = 0x%08X\n", addr, value)
	return nil
}

func cmdMem64(client *driver.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mem64 <addr> [value]")
	}
	addr, err := parseValue(args[0])
	if err != nil {
		return err
	}
	if len(args) >= 2 {
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}
		return client.WriteSystemBus64(addr, value)
	}
	value, err := client.ReadSystemBus64(addr)
	if err != nil {
		return err
	}
	fmt.Printf("[0x%08X] = 0x%016X\n", addr, value)
	return nil
}

// parseValue accepts decimal or 0x-prefixed hexadecimal.
func parseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), base(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", s)
	}
	return v, nil
}

func base(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}
