package sim

import (
	"errors"

	"tinygo.org/x/drivers/lis3dh"
)

// Power-on values of the modelled accelerometer
const (
	identity       = 0x3B
	controlDefault = 0x07

	// Bit 7 of the sub-address enables pointer auto-increment
	autoIncrement = 0x80
)

var errNack = errors.New("sim: address not acknowledged")

// Device models a LIS35DE-style accelerometer on the bus: a 7-bit address
// and a register file behind a sub-address pointer
type Device struct {
	Address uint8

	regs    [128]byte
	pointer uint8
	auto    bool
	first   bool

	absent bool
	hang   bool
}

// NewDevice creates a device answering at addr
func NewDevice(addr uint8) *Device {
	d := &Device{Address: addr}
	d.regs[lis3dh.WHO_AM_I] = identity
	d.regs[lis3dh.REG_CTRL1] = controlDefault
	return d
}

// SetAxes loads the high bytes of the X and Y outputs
func (d *Device) SetAxes(x, y int8) {
	d.regs[lis3dh.REG_OUT_X_H] = byte(x)
	d.regs[lis3dh.REG_OUT_Y_H] = byte(y)
}

// Register returns the current value of reg
func (d *Device) Register(reg uint8) byte {
	return d.regs[reg&0x7F]
}

// SetAbsent makes the device stop acknowledging its address
func (d *Device) SetAbsent(absent bool) {
	d.absent = absent
}

// SetHang makes the device hold the bus during the address phase, so the
// controller never reports completion or error
func (d *Device) SetHang(hang bool) {
	d.hang = hang
}

// acknowledges reports whether an address byte is answered
func (d *Device) acknowledges(addrByte byte) bool {
	return !d.absent && addrByte>>1 == d.Address
}

// begin marks the start of a write transfer; the first byte is the pointer
func (d *Device) begin() {
	d.first = true
}

func (d *Device) write(b byte) {
	if d.first {
		d.first = false
		d.pointer = b &^ autoIncrement
		d.auto = b&autoIncrement != 0
		return
	}
	d.regs[d.pointer&0x7F] = b
	d.advance()
}

func (d *Device) read() byte {
	b := d.regs[d.pointer&0x7F]
	d.advance()
	return b
}

func (d *Device) advance() {
	if d.auto {
		d.pointer++
	}
}

// Tx implements drivers.I2C as a blocking transfer: a write of w followed by
// a repeated-start read into r
func (d *Device) Tx(addr uint16, w, r []byte) error {
	if d.absent || d.hang || addr != uint16(d.Address) {
		return errNack
	}
	if len(w) > 0 {
		d.begin()
		for _, b := range w {
			d.write(b)
		}
	}
	for i := range r {
		r[i] = d.read()
	}
	return nil
}
