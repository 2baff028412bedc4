package core

import (
	"strconv"
	"testing"
)

// fakeBus records every controller operation. Tests set status bits
// directly; writes clear SB and BTF as the hardware does, but TXE stays set
// so same-invocation handling can be checked.
type fakeBus struct {
	status  BusStatus
	ops     []string
	written []byte
	rx      []byte
	ack     bool
	bufIRQ  bool
	cleared BusError
}

func (b *fakeBus) Status() BusStatus { return b.status }

func (b *fakeBus) ClearAddress() {
	b.status &^= StatusAddress
	b.ops = append(b.ops, "clear-addr")
}

func (b *fakeBus) Start() { b.ops = append(b.ops, "start") }

func (b *fakeBus) Stop() { b.ops = append(b.ops, "stop") }

func (b *fakeBus) WriteData(v byte) {
	b.status &^= StatusStart | StatusByteTransferred
	b.written = append(b.written, v)
	b.ops = append(b.ops, "write "+strconv.FormatUint(uint64(v), 16))
}

func (b *fakeBus) ReadData() byte {
	b.status &^= StatusReceiveNotEmpty
	b.ops = append(b.ops, "read")
	if len(b.rx) == 0 {
		return 0
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	return v
}

func (b *fakeBus) SetAck(enable bool) {
	b.ack = enable
	b.ops = append(b.ops, "ack "+strconv.FormatBool(enable))
}

func (b *fakeBus) EnableBufferInterrupt(enable bool) {
	b.bufIRQ = enable
	b.ops = append(b.ops, "bufirq "+strconv.FormatBool(enable))
}

func (b *fakeBus) ClearErrors(e BusError) {
	b.cleared |= e
	b.ops = append(b.ops, "clear-err")
}

// count returns how many times op was issued
func (b *fakeBus) count(op string) int {
	n := 0
	for _, o := range b.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (b *fakeBus) reset() {
	b.ops = nil
	b.written = nil
}

// fakeXfer models a DMA stream: Begin marks it busy, finish raises the
// completion flag, AckComplete clears it.
type fakeXfer struct {
	busy     bool
	complete bool
	last     []byte
	sent     [][]byte
	acks     int
}

func (x *fakeXfer) Busy() bool { return x.busy || x.complete }

func (x *fakeXfer) Begin(buf []byte) {
	x.busy = true
	x.last = buf
	x.sent = append(x.sent, append([]byte(nil), buf...))
}

func (x *fakeXfer) AckComplete() {
	x.complete = false
	x.acks++
}

func (x *fakeXfer) finish() {
	x.busy = false
	x.complete = true
}

// raise asserts status bits, runs the event handler and then drops any
// bits the handler left set
func raise(fw *Firmware, bus *fakeBus, st BusStatus) {
	bus.status = st
	fw.OnBusEvent()
	bus.status = 0
}

func newTestFirmware(cfg Config) (*Firmware, *fakeBus, *fakeXfer) {
	bus := &fakeBus{}
	xfer := &fakeXfer{}
	return New(bus, xfer, cfg), bus, xfer
}

// configure runs the configuration protocol to completion
func configure(t *testing.T, fw *Firmware, bus *fakeBus) {
	t.Helper()
	fw.Start()
	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress)
	raise(fw, bus, StatusTransmitEmpty)
	raise(fw, bus, StatusByteTransferred)
	raise(fw, bus, StatusByteTransferred)
	if !fw.Ready() {
		t.Fatalf("configuration did not complete, state %s", fw.State())
	}
	bus.reset()
}

// readAxis drives the two-phase read of one axis after its start condition
// has been requested
func readAxis(fw *Firmware, bus *fakeBus, value byte) {
	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress)
	raise(fw, bus, StatusByteTransferred)
	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress)
	bus.rx = append(bus.rx, value)
	raise(fw, bus, StatusReceiveNotEmpty)
}
