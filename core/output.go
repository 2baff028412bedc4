package core

import "accelmon/protocol"

// OutputPipeline is the double-buffered serial output path.
//
// Producers append to queue; Flush copies queue into tx and hands tx to the
// transfer engine. tx is never touched while a transfer is in flight.
type OutputPipeline struct {
	xfer  TransferEngine
	queue *protocol.ScratchOutput
	tx    []byte

	dropped   uint32
	transfers uint32
}

// NewOutputPipeline allocates both buffers with the given capacity
func NewOutputPipeline(xfer TransferEngine, capacity int) *OutputPipeline {
	return &OutputPipeline{
		xfer:  xfer,
		queue: protocol.NewScratchOutput(capacity),
		tx:    make([]byte, capacity),
	}
}

// Enqueue appends p up to its first record terminator, then the terminator.
// Bytes that do not fit are dropped. Returns the number of bytes queued.
func (o *OutputPipeline) Enqueue(p []byte) int {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	body := p
	for i, b := range p {
		if b == protocol.Terminator {
			body = p[:i]
			break
		}
	}

	n := o.queue.Output(body)
	if n < len(body) {
		o.dropped += uint32(len(body)-n) + 1
		return n
	}
	if !o.queue.OutputByte(protocol.Terminator) {
		o.dropped++
		return n
	}
	return n + 1
}

// EnqueueString is Enqueue for constant diagnostic text
func (o *OutputPipeline) EnqueueString(s string) int {
	return o.Enqueue([]byte(s))
}

// Flush starts a transfer of everything queued when the transfer engine is
// idle. It is a no-op while a transfer is in flight.
func (o *OutputPipeline) Flush() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	n := o.queue.Len()
	if n == 0 || o.xfer.Busy() {
		return false
	}

	copy(o.tx, o.queue.Result())
	o.xfer.Begin(o.tx[:n])
	o.queue.Reset()
	o.transfers++
	return true
}

// OnTransferComplete is the transfer-complete interrupt entry. It acknowledges
// the completion and chains a flush of anything queued meanwhile.
func (o *OutputPipeline) OnTransferComplete() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	o.xfer.AckComplete()
	o.Flush()
}

// Queued returns the number of bytes waiting for the next transfer
func (o *OutputPipeline) Queued() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return o.queue.Len()
}

// Dropped returns the number of bytes discarded because the queue was full
func (o *OutputPipeline) Dropped() uint32 {
	return o.dropped
}

// Transfers returns the number of transfers started
func (o *OutputPipeline) Transfers() uint32 {
	return o.transfers
}
