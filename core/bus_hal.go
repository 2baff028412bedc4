package core

// BusStatus is a snapshot of the bus controller's event status register.
// Several bits may be set at once.
type BusStatus uint8

const (
	StatusStart            BusStatus = 1 << iota // Start condition sent (SB)
	StatusAddress                                // Address phase done (ADDR)
	StatusByteTransferred                        // Byte transfer finished (BTF)
	StatusReceiveNotEmpty                        // Receive data available (RXNE)
	StatusTransmitEmpty                          // Transmit data register empty (TXE)
)

// BusError is the set of error conditions reported by the controller's
// error interrupt
type BusError uint8

const (
	ErrBus             BusError = 1 << iota // Misplaced start or stop
	ErrArbitrationLost                      // Lost arbitration to another master
	ErrAckFailure                           // Address or data not acknowledged
	ErrOverrun                              // Receive overrun / transmit underrun
)

// String returns a short name for the error set
func (e BusError) String() string {
	switch e {
	case 0:
		return "none"
	case ErrBus:
		return "bus"
	case ErrArbitrationLost:
		return "arbitration"
	case ErrAckFailure:
		return "nack"
	case ErrOverrun:
		return "overrun"
	}
	return "multiple"
}

// BusController is the register-level I2C master interface the protocol
// engine drives. Every method must complete without waiting on the bus.
type BusController interface {
	// Status reads the event status register.
	Status() BusStatus

	// ClearAddress performs the secondary status read that clears the
	// address flag. It must follow a Status call.
	ClearAddress()

	// Start requests a start (or repeated start) condition.
	Start()

	// Stop requests a stop condition after the current byte.
	Stop()

	// WriteData loads the data register for transmission.
	WriteData(b byte)

	// ReadData reads the received byte from the data register.
	ReadData() byte

	// SetAck enables or disables acknowledgment of received bytes.
	SetAck(enable bool)

	// EnableBufferInterrupt gates the TXE/RXNE interrupt sources.
	EnableBufferInterrupt(enable bool)

	// ClearErrors acknowledges the given error flags.
	ClearErrors(e BusError)
}

// TransferEngine moves a contiguous memory block to the serial transport
// without per-byte interrupt involvement (a DMA stream on hardware).
type TransferEngine interface {
	// Busy reports whether a transfer is enabled or its completion flag is
	// still set.
	Busy() bool

	// Begin starts a transfer over buf. buf must not be modified until the
	// completion interrupt fires.
	Begin(buf []byte)

	// AckComplete clears the transfer-complete flag.
	AckComplete()
}
