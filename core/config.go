package core

import (
	"accelmon/protocol"

	"tinygo.org/x/drivers/lis3dh"
)

// Default device settings for the LIS35DE, which shares the LIS3xx register
// map for the registers used here
const (
	DefaultAddress = 0x1D

	// Power-up plus X, Y and Z enable bits
	DefaultControlValue = 1<<6 | 1<<2 | 1<<1 | 1

	// DefaultDeadlineTicks bounds how long a transaction may stall
	DefaultDeadlineTicks = 10
)

// Config holds the fixed firmware settings
type Config struct {
	// Address is the 7-bit device address
	Address uint8

	// ControlRegister and ControlValue form the one-time configuration write
	ControlRegister uint8
	ControlValue    uint8

	// AxisRegisters are the two registers read per cycle, axis A first
	AxisRegisters [2]uint8

	// DeadlineTicks is the number of ticks a transaction may go without
	// completing before the supervisor forces recovery
	DeadlineTicks uint32

	// ReconfigureAfter makes the supervisor fall back to reconfiguring the
	// device after that many consecutive read stalls. Zero disables it.
	ReconfigureAfter uint32

	// QueueCapacity sizes both output buffers
	QueueCapacity int

	// Trace emits a diagnostic line per bus event
	Trace bool
}

// DefaultConfig returns the settings used by the firmware image
func DefaultConfig() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.ControlRegister == 0 {
		cfg.ControlRegister = lis3dh.REG_CTRL1
	}
	if cfg.ControlValue == 0 {
		cfg.ControlValue = DefaultControlValue
	}
	if cfg.AxisRegisters == [2]uint8{} {
		cfg.AxisRegisters = [2]uint8{lis3dh.REG_OUT_X_H, lis3dh.REG_OUT_Y_H}
	}
	if cfg.DeadlineTicks == 0 {
		cfg.DeadlineTicks = DefaultDeadlineTicks
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = protocol.QueueCapacity
	}
}
