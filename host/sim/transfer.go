package sim

import "io"

// Transfer models a memory-to-peripheral DMA stream feeding a serial port.
// A started transfer completes after a number of steps proportional to its
// length, then latches its completion flag until acknowledged.
type Transfer struct {
	w            io.Writer
	bytesPerStep int

	buf       []byte
	remaining int
	enabled   bool
	complete  bool

	sent  uint64
	err   error
	count uint32
}

// NewTransfer creates a transfer engine writing completed blocks to w
func NewTransfer(w io.Writer, bytesPerStep int) *Transfer {
	if bytesPerStep <= 0 {
		bytesPerStep = 1
	}
	return &Transfer{w: w, bytesPerStep: bytesPerStep}
}

// Busy implements core.TransferEngine
func (t *Transfer) Busy() bool {
	return t.enabled || t.complete
}

// Begin implements core.TransferEngine
func (t *Transfer) Begin(buf []byte) {
	t.buf = buf
	t.remaining = len(buf)
	t.enabled = true
	t.count++
}

// AckComplete implements core.TransferEngine
func (t *Transfer) AckComplete() {
	t.complete = false
}

// CompletePending reports whether the completion interrupt is asserted
func (t *Transfer) CompletePending() bool {
	return t.complete
}

// Sent returns the number of bytes written out
func (t *Transfer) Sent() uint64 {
	return t.sent
}

// Transfers returns the number of transfers started
func (t *Transfer) Transfers() uint32 {
	return t.count
}

// Err returns the first write error from the output
func (t *Transfer) Err() error {
	return t.err
}

// Step moves up to bytesPerStep bytes
func (t *Transfer) Step() {
	if !t.enabled {
		return
	}
	t.remaining -= t.bytesPerStep
	if t.remaining > 0 {
		return
	}

	n, err := t.w.Write(t.buf)
	t.sent += uint64(n)
	if err != nil && t.err == nil {
		t.err = err
	}
	t.buf = nil
	t.enabled = false
	t.complete = true
}
