// Package main provides the entry point for rvdebug.
// rvdebug is a RISC-V external debug unit model with a JTAG transport.
//
// For the full CLI, use: go run ./cmd/rvdebug
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvdebug - RISC-V External Debug Unit Model")
	fmt.Println("")
	fmt.Println("Usage: rvdebug [options] [program.elf]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -jtag      Drive the target through the JTAG scan transport")
	fmt.Println("  -config    Path to target configuration JSON file")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvdebug' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvdebug' instead.")
	}
}
