package core

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lis3dh"
)

// Identity register values accepted by ProbeDevice
const (
	IdentityLIS35DE = 0x3B
	IdentityLIS3DH  = 0x33
)

var (
	// ErrDeviceNotFound is returned when the identity read is not acknowledged
	ErrDeviceNotFound = errors.New("accelerometer not responding")

	// ErrUnexpectedIdentity is returned when the identity register holds an
	// unknown value
	ErrUnexpectedIdentity = errors.New("unexpected accelerometer identity")
)

// ProbeDevice reads the identity register with a blocking transaction.
// It is meant for the boot sequence only, before the bus event interrupts
// are enabled.
func ProbeDevice(bus drivers.I2C, addr uint8) (byte, error) {
	id := []byte{0}
	if err := bus.Tx(uint16(addr), []byte{lis3dh.WHO_AM_I}, id); err != nil {
		return 0, ErrDeviceNotFound
	}
	switch id[0] {
	case IdentityLIS35DE, IdentityLIS3DH:
		return id[0], nil
	}
	return id[0], ErrUnexpectedIdentity
}

// ConfigureDevice performs the configuration write with a blocking
// transaction. Polled bring-up images use it in place of the interrupt
// engine.
func ConfigureDevice(bus drivers.I2C, cfg Config) error {
	applyDefaults(&cfg)
	err := bus.Tx(uint16(cfg.Address), []byte{cfg.ControlRegister, cfg.ControlValue}, nil)
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	return nil
}

// ReadSamples reads both axis registers with blocking transactions
func ReadSamples(bus drivers.I2C, cfg Config) (SampleSet, error) {
	applyDefaults(&cfg)
	var s SampleSet
	v := []byte{0}
	for axis, reg := range cfg.AxisRegisters {
		if err := bus.Tx(uint16(cfg.Address), []byte{reg}, v); err != nil {
			return s, fmt.Errorf("read axis %d: %w", axis, err)
		}
		s.set(Axis(axis), int8(v[0]))
	}
	return s, nil
}
