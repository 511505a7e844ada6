package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// TargetConfig holds the simulated target's shape and timing values.
type TargetConfig struct {
	// Harts is the number of harts in the target. Default: 1.
	Harts int `json:"harts"`

	// MemSizeKB is the size of the target memory in kilobytes.
	// Default: 1024.
	MemSizeKB uint64 `json:"mem_size_kb"`

	// BusLatency is the system bus completion latency in internal
	// clock cycles. Default: 4 cycles.
	BusLatency int `json:"bus_latency"`

	// CommandDelay is how many internal cycles an abstract command
	// stays busy. Default: 2 cycles.
	CommandDelay int `json:"command_delay"`

	// ClockRatio is how many internal clock cycles elapse per scan
	// clock edge. The scan clock is never faster than the internal
	// clock, so the minimum is 1. Default: 1.
	ClockRatio int `json:"clock_ratio"`

	// IdleHint is the number of run-test/idle cycles the transport
	// advertises between a request scan and its collection scan.
	// Default: 4 cycles.
	IdleHint int `json:"idle_hint"`

	// SeedWait is the initial debugger backoff counter value.
	// Default: 8 cycles.
	SeedWait int `json:"seed_wait"`
}

// DefaultTargetConfig returns a TargetConfig with single-hart default
// values.
func DefaultTargetConfig() *TargetConfig {
	return &TargetConfig{
		Harts:        1,
		MemSizeKB:    1024,
		BusLatency:   4,
		CommandDelay: 2,
		ClockRatio:   1,
		IdleHint:     4,
		SeedWait:     8,
	}
}

// LoadTargetConfig loads a TargetConfig from a JSON file. Missing
// fields keep their defaults.
func LoadTargetConfig(path string) (*TargetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target config file: %w", err)
	}

	config := DefaultTargetConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse target config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that all configuration values are usable.
func (c *TargetConfig) Validate() error {
	if c.Harts < 1 {
		return fmt.Errorf("harts must be > 0")
	}
	if c.MemSizeKB == 0 {
		return fmt.Errorf("mem_size_kb must be > 0")
	}
	if c.BusLatency < 1 {
		return fmt.Errorf("bus_latency must be > 0")
	}
	if c.CommandDelay < 1 {
		return fmt.Errorf("command_delay must be > 0")
	}
	if c.ClockRatio < 1 {
		return fmt.Errorf("clock_ratio must be > 0")
	}
	if c.IdleHint < 1 {
		return fmt.Errorf("idle_hint must be > 0")
	}
	if c.SeedWait < 1 {
		return fmt.Errorf("seed_wait must be > 0")
	}
	return nil
}
