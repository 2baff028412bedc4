//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"

	"accelmon/core"
)

// I2C1 register map
const (
	i2c1Base = 0x40005400
	i2cCR1   = i2c1Base + 0x00
	i2cCR2   = i2c1Base + 0x04
	i2cDR    = i2c1Base + 0x10
	i2cSR1   = i2c1Base + 0x14
	i2cSR2   = i2c1Base + 0x18
)

// CR1 bits
const (
	cr1START = 1 << 8
	cr1STOP  = 1 << 9
	cr1ACK   = 1 << 10
)

// CR2 bits
const (
	cr2ITERREN = 1 << 8
	cr2ITEVTEN = 1 << 9
	cr2ITBUFEN = 1 << 10
)

// SR1 bits
const (
	sr1SB    = 1 << 0
	sr1ADDR  = 1 << 1
	sr1BTF   = 1 << 2
	sr1RXNE  = 1 << 6
	sr1TXE   = 1 << 7
	sr1BERR  = 1 << 8
	sr1ARLO  = 1 << 9
	sr1AF    = 1 << 10
	sr1OVR   = 1 << 11
	sr1Error = sr1BERR | sr1ARLO | sr1AF | sr1OVR
)

// i2cBus drives I2C1 directly for the interrupt-driven engine
type i2cBus struct {
	cr1 *volatile.Register32
	cr2 *volatile.Register32
	dr  *volatile.Register32
	sr1 *volatile.Register32
	sr2 *volatile.Register32
}

func newI2CBus() *i2cBus {
	return &i2cBus{
		cr1: reg(i2cCR1),
		cr2: reg(i2cCR2),
		dr:  reg(i2cDR),
		sr1: reg(i2cSR1),
		sr2: reg(i2cSR2),
	}
}

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// enableInterrupts turns on the event and error interrupt sources
func (b *i2cBus) enableInterrupts() {
	b.cr2.SetBits(cr2ITEVTEN | cr2ITERREN)
}

func (b *i2cBus) Status() core.BusStatus {
	sr := b.sr1.Get()
	var st core.BusStatus
	if sr&sr1SB != 0 {
		st |= core.StatusStart
	}
	if sr&sr1ADDR != 0 {
		st |= core.StatusAddress
	}
	if sr&sr1BTF != 0 {
		st |= core.StatusByteTransferred
	}
	if sr&sr1RXNE != 0 {
		st |= core.StatusReceiveNotEmpty
	}
	if sr&sr1TXE != 0 {
		st |= core.StatusTransmitEmpty
	}
	return st
}

func (b *i2cBus) ClearAddress() {
	// ADDR clears on an SR1 read followed by an SR2 read
	b.sr1.Get()
	b.sr2.Get()
}

func (b *i2cBus) Start() {
	b.cr1.SetBits(cr1START)
}

func (b *i2cBus) Stop() {
	b.cr1.SetBits(cr1STOP)
}

func (b *i2cBus) WriteData(v byte) {
	b.dr.Set(uint32(v))
}

func (b *i2cBus) ReadData() byte {
	return byte(b.dr.Get())
}

func (b *i2cBus) SetAck(enable bool) {
	if enable {
		b.cr1.SetBits(cr1ACK)
	} else {
		b.cr1.ClearBits(cr1ACK)
	}
}

func (b *i2cBus) EnableBufferInterrupt(enable bool) {
	if enable {
		b.cr2.SetBits(cr2ITBUFEN)
	} else {
		b.cr2.ClearBits(cr2ITBUFEN)
	}
}

func (b *i2cBus) ClearErrors(e core.BusError) {
	var mask uint32
	if e&core.ErrBus != 0 {
		mask |= sr1BERR
	}
	if e&core.ErrArbitrationLost != 0 {
		mask |= sr1ARLO
	}
	if e&core.ErrAckFailure != 0 {
		mask |= sr1AF
	}
	if e&core.ErrOverrun != 0 {
		mask |= sr1OVR
	}
	// Error flags are cleared by writing zero; ones are ignored
	b.sr1.Set(0xFFFF &^ mask)
}

// pendingErrors reads the latched error flags for the error interrupt
func (b *i2cBus) pendingErrors() core.BusError {
	sr := b.sr1.Get()
	var e core.BusError
	if sr&sr1BERR != 0 {
		e |= core.ErrBus
	}
	if sr&sr1ARLO != 0 {
		e |= core.ErrArbitrationLost
	}
	if sr&sr1AF != 0 {
		e |= core.ErrAckFailure
	}
	if sr&sr1OVR != 0 {
		e |= core.ErrOverrun
	}
	return e
}
