// Package core implements the interrupt-driven accelerometer streamer: the
// bus protocol engine, the tick supervisor, the result formatter and the
// double-buffered output pipeline.
//
// All runtime state lives in a Firmware value. Target code owns exactly one
// and forwards its interrupt handlers to OnBusEvent, OnBusError, OnTick and
// OnTransferComplete. Each entry point runs inside an interrupt critical
// section and returns after a bounded amount of work.
package core

// TransactionState is the position of the bus protocol engine within the
// configuration write or the read cycle
type TransactionState uint8

const (
	StateIdle               TransactionState = iota // Waiting for a start condition
	StateConfigAddressed                            // Config: address written
	StateConfigRegisterSent                         // Config: control register written
	StateConfigValueSent                            // Config: control value written
	StateReadAddressedWrite                         // Read: address written in write mode
	StateReadRegisterSent                           // Read: axis register written
	StateReadRepeatedStart                          // Read: repeated start requested
	StateReadAddressedRead                          // Read: address written in read mode
	StateReadByteReceived                           // Read: axis A received, start requested for axis B
)

var stateNames = [...]string{
	StateIdle:               "idle",
	StateConfigAddressed:    "cfg-addr",
	StateConfigRegisterSent: "cfg-reg",
	StateConfigValueSent:    "cfg-val",
	StateReadAddressedWrite: "rd-addr-w",
	StateReadRegisterSent:   "rd-reg",
	StateReadRepeatedStart:  "rd-restart",
	StateReadAddressedRead:  "rd-addr-r",
	StateReadByteReceived:   "rd-byte",
}

// String returns a short name for the state
func (s TransactionState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Axis selects which register a read cycle is currently targeting
type Axis uint8

const (
	AxisA Axis = iota
	AxisB
)

// SampleSet holds the values read during one cycle
type SampleSet struct {
	Values [2]int8
	valid  [2]bool
}

// Complete reports whether both axes were read in the current cycle
func (s *SampleSet) Complete() bool {
	return s.valid[AxisA] && s.valid[AxisB]
}

func (s *SampleSet) set(axis Axis, v int8) {
	s.Values[axis] = v
	s.valid[axis] = true
}

func (s *SampleSet) reset() {
	s.valid = [2]bool{}
}

// Stats counts notable firmware events
type Stats struct {
	Cycles           uint32 // Read cycles delivered to the formatter
	ConfigAttempts   uint32 // Configuration transactions started
	Configurations   uint32 // Configuration transactions completed
	Stalls           uint32 // Deadlines expired
	Reconfigurations uint32 // Ready cleared after repeated read stalls
	BusErrors        uint32 // Error interrupts handled
	DroppedBytes     uint32 // Output bytes lost to a full queue
}

// Firmware is the single owned context shared by all interrupt entry points
type Firmware struct {
	cfg Config
	bus BusController
	out *OutputPipeline

	state           TransactionState
	axis            Axis
	samples         SampleSet
	ready           bool
	pending         bool
	firstCompletion bool

	// waitTicks is shared between the supervisor and cycle completion
	waitTicks         uint32
	consecutiveStalls uint32
	ticks             uint32

	stats    Stats
	ring     TraceRing
	traceBuf [32]byte
	debug    DebugWriter
}

// New creates the firmware context. Nothing touches the bus until Start.
func New(bus BusController, xfer TransferEngine, cfg Config) *Firmware {
	applyDefaults(&cfg)
	return &Firmware{
		cfg:             cfg,
		bus:             bus,
		out:             NewOutputPipeline(xfer, cfg.QueueCapacity),
		firstCompletion: true,
	}
}

// Output returns the output pipeline for diagnostic producers
func (f *Firmware) Output() *OutputPipeline {
	return f.out
}

// OnTransferComplete is the transfer engine's completion interrupt entry
func (f *Firmware) OnTransferComplete() {
	f.out.OnTransferComplete()
}

// SetDebugWriter sets the sink used by DumpTrace
func (f *Firmware) SetDebugWriter(w DebugWriter) {
	f.debug = w
}

// DumpTrace writes the event ring through the debug writer
func (f *Firmware) DumpTrace() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	f.ring.Dump(f.debug)
}

// Trace returns the recorded events, oldest first
func (f *Firmware) Trace() []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return f.ring.Snapshot()
}

// State returns the current transaction state
func (f *Firmware) State() TransactionState {
	return f.state
}

// Ready reports whether the device configuration has completed
func (f *Firmware) Ready() bool {
	return f.ready
}

// Pending reports whether a read cycle is in flight
func (f *Firmware) Pending() bool {
	return f.pending
}

// CurrentAxis returns the axis targeted by the in-flight cycle
func (f *Firmware) CurrentAxis() Axis {
	return f.axis
}

// ReceivePhase returns 1 between the repeated start and the received byte,
// 0 otherwise
func (f *Firmware) ReceivePhase() int {
	if f.state == StateReadRepeatedStart || f.state == StateReadAddressedRead {
		return 1
	}
	return 0
}

// Samples returns the last values read
func (f *Firmware) Samples() SampleSet {
	return f.samples
}

// WaitTicks returns the supervisor's wait counter
func (f *Firmware) WaitTicks() uint32 {
	return f.waitTicks
}

// Stats returns a copy of the event counters
func (f *Firmware) Stats() Stats {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	s := f.stats
	s.DroppedBytes = f.out.Dropped()
	return s
}

// record stores an event in the ring and, with tracing on, emits a
// diagnostic line
func (f *Firmware) record(kind TraceKind) {
	f.ring.Record(kind, f.state, f.ticks)
	if !f.cfg.Trace {
		return
	}
	line := append(f.traceBuf[:0], kind.String()...)
	line = append(line, ' ')
	line = append(line, f.state.String()...)
	line = append(line, '\n', '\r')
	f.out.Enqueue(line)
	f.out.Flush()
}
