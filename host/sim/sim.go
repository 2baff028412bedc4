// Package sim runs the firmware core against a software model of its
// hardware: an STM32-style I2C controller, a LIS35DE-style accelerometer and
// a DMA stream feeding a serial port. Time advances in steps of one I2C byte;
// the supervisor tick fires every TickEvery steps.
package sim

import (
	"context"
	"io"

	"accelmon/core"
)

// Defaults for Options
const (
	DefaultTickEvery    = 100
	DefaultBytesPerStep = 1
)

// Options tunes the simulated timing
type Options struct {
	// TickEvery is the number of steps between supervisor ticks
	TickEvery int

	// BytesPerStep is the serial throughput relative to the I2C bus
	BytesPerStep int
}

// Sim owns the modelled hardware and the firmware driving it
type Sim struct {
	Device     *Device
	Controller *Controller
	Transfer   *Transfer

	fw    *core.Firmware
	opts  Options
	steps uint64
}

// New builds a simulator around dev, sending the serial output to out
func New(dev *Device, out io.Writer, cfg core.Config, opts Options) *Sim {
	if opts.TickEvery <= 0 {
		opts.TickEvery = DefaultTickEvery
	}
	if opts.BytesPerStep <= 0 {
		opts.BytesPerStep = DefaultBytesPerStep
	}

	ctrl := NewController(dev)
	xfer := NewTransfer(out, opts.BytesPerStep)
	return &Sim{
		Device:     dev,
		Controller: ctrl,
		Transfer:   xfer,
		fw:         core.New(ctrl, xfer, cfg),
		opts:       opts,
	}
}

// Firmware returns the firmware under simulation
func (s *Sim) Firmware() *core.Firmware {
	return s.fw
}

// Steps returns the number of steps run so far
func (s *Sim) Steps() uint64 {
	return s.steps
}

// Boot probes the device over the blocking interface, as the target does
// before enabling interrupts, then starts the firmware
func (s *Sim) Boot() (byte, error) {
	id, err := core.ProbeDevice(s.Device, s.Device.Address)
	if err != nil {
		return id, err
	}
	s.fw.Start()
	return id, nil
}

// Step advances the hardware by one step and services every interrupt it
// raised, in the priority order of the target: bus error, bus event,
// transfer complete, then the tick.
func (s *Sim) Step() {
	s.steps++
	s.Controller.Step()
	s.Transfer.Step()

	if errs := s.Controller.Errors(); errs != 0 {
		s.fw.OnBusError(errs)
	}
	if s.Controller.EventPending() {
		s.fw.OnBusEvent()
	}
	if s.Transfer.CompletePending() {
		s.fw.OnTransferComplete()
	}
	if s.steps%uint64(s.opts.TickEvery) == 0 {
		s.fw.OnTick()
	}
}

// Run steps the simulation n times, or until ctx is cancelled when n <= 0
func (s *Sim) Run(ctx context.Context, n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.Step()
	}
	return s.Transfer.Err()
}
