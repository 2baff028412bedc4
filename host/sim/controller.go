package sim

import "accelmon/core"

type busMode uint8

const (
	modeIdle busMode = iota
	modeStarted
	modeAddressing
	modeTransmit
	modeReceive
)

// stopLatency is the number of steps a requested stop leaves the status
// flags visible before the condition is generated
const stopLatency = 1

// Controller models an STM32-style I2C master. Register side effects follow
// the hardware closely enough for the protocol engine: SB is cleared by the
// address write, ADDR by ClearAddress, RXNE by ReadData and BTF by the next
// data write or by a start/stop condition. Bus progress happens in Step.
type Controller struct {
	dev *Device

	mode   busMode
	status core.BusStatus
	errs   core.BusError

	bufIRQ bool
	ack    bool

	addrByte  byte
	dr        byte
	drFull    bool
	shifter   byte
	shifting  bool
	receiving bool
	reading   bool

	startReq bool
	stopReq  bool
	stopWait int

	log []string
}

// NewController creates a controller with dev as the only device on the bus
func NewController(dev *Device) *Controller {
	return &Controller{dev: dev, ack: true}
}

// Status implements core.BusController
func (c *Controller) Status() core.BusStatus {
	return c.status
}

// ClearAddress implements core.BusController
func (c *Controller) ClearAddress() {
	if c.status&core.StatusAddress == 0 {
		return
	}
	c.status &^= core.StatusAddress
	if c.reading {
		c.mode = modeReceive
		c.receiving = true
		return
	}
	c.mode = modeTransmit
	c.dev.begin()
	c.status |= core.StatusTransmitEmpty
}

// Start implements core.BusController
func (c *Controller) Start() {
	c.startReq = true
}

// Stop implements core.BusController
func (c *Controller) Stop() {
	if c.stopReq {
		return
	}
	c.stopReq = true
	c.stopWait = stopLatency
}

// WriteData implements core.BusController
func (c *Controller) WriteData(b byte) {
	if c.status&core.StatusStart != 0 {
		c.status &^= core.StatusStart
		c.addrByte = b
		c.reading = b&1 != 0
		c.mode = modeAddressing
		c.note("addr", b)
		return
	}
	if c.mode != modeTransmit {
		return
	}
	c.dr = b
	c.drFull = true
	c.status &^= core.StatusTransmitEmpty | core.StatusByteTransferred
}

// ReadData implements core.BusController
func (c *Controller) ReadData() byte {
	c.status &^= core.StatusReceiveNotEmpty | core.StatusByteTransferred
	return c.dr
}

// SetAck implements core.BusController
func (c *Controller) SetAck(enable bool) {
	c.ack = enable
}

// EnableBufferInterrupt implements core.BusController
func (c *Controller) EnableBufferInterrupt(enable bool) {
	c.bufIRQ = enable
}

// ClearErrors implements core.BusController
func (c *Controller) ClearErrors(e core.BusError) {
	c.errs &^= e
}

// EventPending reports whether the event interrupt line is asserted
func (c *Controller) EventPending() bool {
	const events = core.StatusStart | core.StatusAddress | core.StatusByteTransferred
	const buffer = core.StatusTransmitEmpty | core.StatusReceiveNotEmpty
	return c.status&events != 0 || (c.bufIRQ && c.status&buffer != 0)
}

// Errors returns the latched error flags
func (c *Controller) Errors() core.BusError {
	return c.errs
}

// Busy reports whether the controller owns the bus
func (c *Controller) Busy() bool {
	return c.mode != modeIdle
}

// Log returns the address bytes and conditions put on the bus, oldest first
func (c *Controller) Log() []string {
	return c.log
}

// Step advances the bus by one byte time
func (c *Controller) Step() {
	switch c.mode {
	case modeAddressing:
		c.stepAddress()
	case modeTransmit:
		c.stepTransmit()
	case modeReceive:
		c.stepReceive()
	}

	if c.stopReq && !c.shifting && !c.receiving {
		if c.stopWait > 0 {
			c.stopWait--
		} else {
			c.generateStop()
		}
	}
	if c.startReq && !c.stopReq && !c.shifting && !c.receiving {
		c.generateStart()
	}
}

func (c *Controller) stepAddress() {
	if c.dev.hang {
		return
	}
	if !c.dev.acknowledges(c.addrByte) {
		c.errs |= core.ErrAckFailure
		c.mode = modeStarted
		return
	}
	c.status |= core.StatusAddress
}

func (c *Controller) stepTransmit() {
	if c.shifting {
		c.dev.write(c.shifter)
		c.shifting = false
	}
	if c.drFull {
		c.shifter = c.dr
		c.drFull = false
		c.shifting = true
		c.status |= core.StatusTransmitEmpty
		return
	}
	if c.status&core.StatusTransmitEmpty != 0 && !c.stopReq {
		c.status |= core.StatusByteTransferred
	}
}

func (c *Controller) stepReceive() {
	if !c.receiving {
		return
	}
	if c.status&core.StatusReceiveNotEmpty != 0 {
		// Data register still full: the bus is held until it is read
		c.status |= core.StatusByteTransferred
		return
	}
	c.dr = c.dev.read()
	c.status |= core.StatusReceiveNotEmpty
	if !c.ack || c.stopReq {
		c.receiving = false
	}
}

func (c *Controller) generateStart() {
	c.startReq = false
	c.shifting = false
	c.drFull = false
	c.receiving = false
	c.status &^= core.StatusByteTransferred | core.StatusTransmitEmpty | core.StatusAddress
	c.status |= core.StatusStart
	c.mode = modeStarted
	c.log = append(c.log, "S")
}

func (c *Controller) generateStop() {
	c.stopReq = false
	if c.mode == modeIdle {
		return
	}
	c.shifting = false
	c.drFull = false
	c.receiving = false
	c.status &^= core.StatusStart | core.StatusAddress | core.StatusByteTransferred | core.StatusTransmitEmpty
	c.mode = modeIdle
	c.log = append(c.log, "P")
}

func (c *Controller) note(kind string, b byte) {
	const hex = "0123456789abcdef"
	c.log = append(c.log, kind+" "+string([]byte{hex[b>>4], hex[b&0x0F]}))
}
