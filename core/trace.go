package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceKind identifies a recorded engine event
type TraceKind uint8

// Trace event codes
const (
	TraceStart       TraceKind = iota + 1 // Start condition handled
	TraceAddress                          // Address phase handled
	TraceByteDone                         // Byte transfer finished handled
	TraceTxEmpty                          // Transmit empty handled
	TraceRxData                           // Received byte handled
	TraceBusError                         // Error interrupt
	TraceStall                            // Supervisor deadline expired
	TraceConfigured                       // Device configuration completed
	TraceCycleDone                        // Both axes delivered
)

var traceNames = [...]string{
	TraceStart:      "SB",
	TraceAddress:    "ADDR",
	TraceByteDone:   "BTF",
	TraceTxEmpty:    "TXE",
	TraceRxData:     "RXNE",
	TraceBusError:   "bus error",
	TraceStall:      "stall",
	TraceConfigured: "configured",
	TraceCycleDone:  "cycle",
}

// String returns the diagnostic name of the event
func (k TraceKind) String() string {
	if int(k) < len(traceNames) && traceNames[k] != "" {
		return traceNames[k]
	}
	return "unknown"
}

// TraceEvent captures one engine event for post-mortem analysis
type TraceEvent struct {
	Kind  TraceKind
	State TransactionState // State after the event was handled
	Tick  uint32           // Supervisor tick count at the event
}

// TraceRingSize is the number of events kept
const TraceRingSize = 32

// TraceRing keeps the most recent engine events. Recording never blocks.
type TraceRing struct {
	events [TraceRingSize]TraceEvent
	head   uint8
}

// Record stores an event, overwriting the oldest
func (r *TraceRing) Record(kind TraceKind, state TransactionState, tick uint32) {
	r.events[r.head] = TraceEvent{Kind: kind, State: state, Tick: tick}
	r.head = (r.head + 1) % TraceRingSize
}

// Snapshot returns the recorded events from oldest to newest
func (r *TraceRing) Snapshot() []TraceEvent {
	out := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := r.events[(r.head+i)%TraceRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Dump writes the ring through w, oldest first
func (r *TraceRing) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	w("[TRACE] === Trace Ring Dump ===")
	var num [12]byte
	for _, evt := range r.Snapshot() {
		w("[TRACE] " + evt.Kind.String() +
			" state=" + evt.State.String() +
			" tick=" + string(appendUint(num[:0], evt.Tick)))
	}
	w("[TRACE] === End Dump ===")
}

// Clear empties the ring
func (r *TraceRing) Clear() {
	*r = TraceRing{}
}

// appendUint appends the decimal form of n without fmt/strconv
func appendUint(dst []byte, n uint32) []byte {
	if n == 0 {
		return append(dst, '0')
	}
	var tmp [10]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[i:]...)
}
