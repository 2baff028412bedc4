package core

import (
	"bytes"
	"reflect"
	"testing"
)

func TestConfigurationSequence(t *testing.T) {
	fw, bus, _ := newTestFirmware(Config{})

	fw.Start()
	if got := bus.ops; !reflect.DeepEqual(got, []string{"ack true", "bufirq false", "start"}) {
		t.Errorf("Start issued %v", got)
	}
	bus.reset()

	steps := []struct {
		status BusStatus
		state  TransactionState
		ops    []string
	}{
		{StatusStart, StateConfigAddressed, []string{"write 3a"}},
		{StatusAddress, StateConfigRegisterSent, []string{"bufirq true", "clear-addr", "write 20"}},
		{StatusTransmitEmpty, StateConfigValueSent, []string{"bufirq false", "write 47"}},
		{StatusByteTransferred, StateConfigValueSent, []string{"stop"}},
		{StatusByteTransferred, StateIdle, nil},
	}

	for i, step := range steps {
		if fw.Ready() {
			t.Fatalf("step %d: ready before the sequence finished", i)
		}
		raise(fw, bus, step.status)
		if fw.State() != step.state {
			t.Errorf("step %d: state %s, want %s", i, fw.State(), step.state)
		}
		if !reflect.DeepEqual(bus.ops, step.ops) {
			t.Errorf("step %d: ops %v, want %v", i, bus.ops, step.ops)
		}
		bus.reset()
	}

	if !fw.Ready() {
		t.Error("Expected ready after the second byte-transfer-finished")
	}
	if fw.Stats().Configurations != 1 {
		t.Errorf("Expected 1 configuration, got %d", fw.Stats().Configurations)
	}
}

func TestConfigurationIgnoresOutOfSequenceEvents(t *testing.T) {
	fw, bus, _ := newTestFirmware(Config{})
	fw.Start()

	stray := []BusStatus{
		StatusStart, StatusAddress, StatusByteTransferred,
		StatusTransmitEmpty, StatusReceiveNotEmpty,
	}
	sequence := []BusStatus{
		StatusStart, StatusAddress, StatusTransmitEmpty,
		StatusByteTransferred, StatusByteTransferred,
	}

	for i, ev := range sequence {
		for _, s := range stray {
			if s == ev {
				continue
			}
			before := fw.State()
			raise(fw, bus, s)
			if fw.State() != before || fw.Ready() {
				t.Fatalf("step %d: stray %b moved state %s -> %s", i, s, before, fw.State())
			}
		}
		raise(fw, bus, ev)
	}

	if !fw.Ready() {
		t.Errorf("Expected ready, state %s", fw.State())
	}
}

func TestConfigurationSkipsTransmitEmptyInAddressPass(t *testing.T) {
	fw, bus, _ := newTestFirmware(Config{})
	fw.Start()

	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress|StatusTransmitEmpty)
	if fw.State() != StateConfigRegisterSent {
		t.Fatalf("TXE handled in the address pass, state %s", fw.State())
	}

	raise(fw, bus, StatusTransmitEmpty)
	if fw.State() != StateConfigValueSent {
		t.Errorf("Expected cfg-val after TXE, got %s", fw.State())
	}
}

func TestConfigurationHandlesCombinedStatus(t *testing.T) {
	fw, bus, _ := newTestFirmware(Config{})
	fw.Start()

	// Start and address flags in one invocation are both handled, in order
	raise(fw, bus, StatusStart|StatusAddress)
	if fw.State() != StateConfigRegisterSent {
		t.Errorf("Expected cfg-reg, got %s", fw.State())
	}
	if !bytes.Equal(bus.written, []byte{0x3A, 0x20}) {
		t.Errorf("Unexpected writes %x", bus.written)
	}
}

func TestReadCycle(t *testing.T) {
	fw, bus, xfer := newTestFirmware(Config{})
	configure(t, fw, bus)

	fw.OnTick()
	if !fw.Pending() || fw.CurrentAxis() != AxisA {
		t.Fatal("Tick did not start a read cycle on axis A")
	}
	if bus.count("start") != 1 {
		t.Fatalf("Expected one start, got %d", bus.count("start"))
	}

	raise(fw, bus, StatusStart)
	if fw.State() != StateReadAddressedWrite || fw.ReceivePhase() != 0 {
		t.Errorf("After start: %s phase %d", fw.State(), fw.ReceivePhase())
	}
	raise(fw, bus, StatusAddress)
	if fw.State() != StateReadRegisterSent {
		t.Errorf("After address: %s", fw.State())
	}
	raise(fw, bus, StatusByteTransferred)
	if fw.State() != StateReadRepeatedStart || fw.ReceivePhase() != 1 {
		t.Errorf("After BTF: %s phase %d", fw.State(), fw.ReceivePhase())
	}
	if bus.count("stop") != 0 {
		t.Error("Repeated start must not be preceded by a stop")
	}
	raise(fw, bus, StatusStart)
	if bus.ack {
		t.Error("ACK must be disabled for the single-byte read")
	}
	raise(fw, bus, StatusAddress)
	if bus.count("stop") != 1 {
		t.Error("Stop must be queued in the read-mode address step")
	}
	bus.rx = append(bus.rx, 23)
	raise(fw, bus, StatusReceiveNotEmpty)

	if fw.CurrentAxis() != AxisB || fw.State() != StateReadByteReceived {
		t.Fatalf("Expected axis B after first byte, got axis %d state %s", fw.CurrentAxis(), fw.State())
	}
	if !fw.Pending() {
		t.Fatal("Cycle finished after one axis")
	}
	if len(xfer.sent) != 0 {
		t.Fatal("Record emitted before both axes were read")
	}

	readAxis(fw, bus, 0xFB) // -5

	if fw.Pending() {
		t.Error("Pending still set after axis B")
	}
	if fw.WaitTicks() != 0 {
		t.Errorf("Cycle completion must reset the wait counter, got %d", fw.WaitTicks())
	}

	wantWrites := []byte{0x3A, 0x29, 0x3B, 0x3A, 0x2B, 0x3B}
	if !bytes.Equal(bus.written, wantWrites) {
		t.Errorf("Bus writes %x, want %x", bus.written, wantWrites)
	}

	if len(xfer.sent) != 1 {
		t.Fatalf("Expected one transfer, got %d", len(xfer.sent))
	}
	want := []byte{0, 0, '2', '3', ' ', 0, 0, 0, '+', '\n', '\r'}
	if !bytes.Equal(xfer.sent[0], want) {
		t.Errorf("Record %q, want %q", xfer.sent[0], want)
	}
	if fw.Stats().Cycles != 1 {
		t.Errorf("Expected 1 cycle, got %d", fw.Stats().Cycles)
	}
}

func TestReadCycleOneRecordPerCycle(t *testing.T) {
	fw, bus, xfer := newTestFirmware(Config{})
	configure(t, fw, bus)

	for i := 0; i < 3; i++ {
		fw.OnTick()
		readAxis(fw, bus, byte(i+1))
		readAxis(fw, bus, byte(10*(i+1)))
		xfer.finish()
		fw.OnTransferComplete()
	}

	if len(xfer.sent) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(xfer.sent))
	}
	last := xfer.sent[2]
	if last[3] != '3' || last[7] != '3' || last[8] != '0' {
		t.Errorf("Third record %q does not hold 3 and 30", last)
	}
}

func TestStalledCycleDiscardsPartialSample(t *testing.T) {
	fw, bus, xfer := newTestFirmware(Config{DeadlineTicks: 2})
	configure(t, fw, bus)

	fw.OnTick()
	readAxis(fw, bus, 99) // axis A only, then the device goes quiet

	for i := 0; i < 3; i++ {
		fw.OnTick()
	}
	if fw.CurrentAxis() != AxisA || fw.State() != StateIdle {
		t.Fatalf("Recovery did not restart at axis A: axis %d state %s", fw.CurrentAxis(), fw.State())
	}

	// A receive event for the abandoned cycle is drained, not stored
	bus.rx = append(bus.rx, 55)
	raise(fw, bus, StatusReceiveNotEmpty)
	if len(xfer.sent) != 0 {
		t.Fatal("Stale byte produced a record")
	}

	readAxis(fw, bus, 1)
	readAxis(fw, bus, 2)
	if len(xfer.sent) != 1 {
		t.Fatalf("Expected one record, got %d", len(xfer.sent))
	}
	if xfer.sent[0][3] != '1' || xfer.sent[0][8] != '2' {
		t.Errorf("Record %q carries stale data", xfer.sent[0])
	}
}

func TestBusErrorDuringConfiguration(t *testing.T) {
	fw, bus, xfer := newTestFirmware(Config{})
	fw.Start()
	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress)
	raise(fw, bus, StatusTransmitEmpty)
	raise(fw, bus, StatusByteTransferred) // first completion
	bus.reset()

	fw.OnBusError(ErrAckFailure)

	if bus.cleared != ErrAckFailure {
		t.Errorf("Error flags not cleared: %b", bus.cleared)
	}
	if bus.count("stop") != 1 || bus.count("start") != 1 {
		t.Errorf("Expected stop then restart, got %v", bus.ops)
	}
	if fw.State() != StateIdle || fw.Ready() {
		t.Errorf("Configuration not restarted: %s ready=%v", fw.State(), fw.Ready())
	}
	if len(xfer.sent) != 1 || string(xfer.sent[0]) != "bus error nack\n\r" {
		t.Errorf("Unexpected diagnostic output %q", xfer.sent)
	}

	// The completion toggle was reset: two BTFs are needed again
	raise(fw, bus, StatusStart)
	raise(fw, bus, StatusAddress)
	raise(fw, bus, StatusTransmitEmpty)
	raise(fw, bus, StatusByteTransferred)
	if fw.Ready() {
		t.Fatal("Ready after a single completion following restart")
	}
	raise(fw, bus, StatusByteTransferred)
	if !fw.Ready() {
		t.Error("Expected ready after restarted configuration")
	}
	if fw.Stats().ConfigAttempts != 2 || fw.Stats().BusErrors != 1 {
		t.Errorf("Unexpected stats %+v", fw.Stats())
	}
}

func TestBusErrorDuringReadLeavesRecoveryToSupervisor(t *testing.T) {
	fw, bus, _ := newTestFirmware(Config{DeadlineTicks: 1})
	configure(t, fw, bus)

	fw.OnTick()
	raise(fw, bus, StatusStart)
	bus.reset()

	fw.OnBusError(ErrArbitrationLost)
	if bus.count("stop") != 1 || bus.count("start") != 0 {
		t.Errorf("Read error should only stop the bus, got %v", bus.ops)
	}
	if !fw.Ready() || !fw.Pending() {
		t.Error("Read error must not clear ready or pending")
	}

	fw.OnTick()
	fw.OnTick()
	if bus.count("start") != 1 {
		t.Errorf("Supervisor should restart the cycle once, got %d starts", bus.count("start"))
	}
}

func TestTraceLines(t *testing.T) {
	fw, bus, xfer := newTestFirmware(Config{Trace: true})
	fw.Start()
	raise(fw, bus, StatusStart)

	if len(xfer.sent) != 1 || string(xfer.sent[0]) != "SB cfg-addr\n\r" {
		t.Fatalf("Unexpected trace output %q", xfer.sent)
	}

	raise(fw, bus, StatusAddress)
	xfer.finish()
	fw.OnTransferComplete()
	if len(xfer.sent) != 2 || string(xfer.sent[1]) != "ADDR cfg-reg\n\r" {
		t.Errorf("Unexpected trace output %q", xfer.sent)
	}

	events := fw.Trace()
	if len(events) != 2 || events[0].Kind != TraceStart || events[1].State != StateConfigRegisterSent {
		t.Errorf("Unexpected trace ring %+v", events)
	}
}
