package core

// OnBusEvent is the bus controller's event interrupt entry.
//
// Every asserted condition is handled in one invocation, in the order
// start, address, byte-transfer-finished, then transmit-empty and
// receive-not-empty. The status register is re-read before each test since
// handling one condition clears it and may expose the next.
func (f *Firmware) OnBusEvent() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if f.bus.Status()&StatusStart != 0 {
		f.handleStart()
	}

	addressed := false
	if f.bus.Status()&StatusAddress != 0 {
		f.handleAddress()
		addressed = true
	}

	if f.bus.Status()&StatusByteTransferred != 0 {
		f.handleByteTransferred()
	}

	st := f.bus.Status()
	// TXE raised by the register byte written in the address step belongs to
	// the next invocation
	if st&StatusTransmitEmpty != 0 && !addressed {
		f.handleTransmitEmpty()
	}
	if st&StatusReceiveNotEmpty != 0 {
		f.handleReceive()
	}
}

// OnBusError is the bus controller's error interrupt entry. It always
// releases the bus; before the device is configured it also restarts the
// configuration write. A read cycle cut short here is recovered by the
// supervisor's deadline.
func (f *Firmware) OnBusError(errs BusError) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	f.stats.BusErrors++
	f.bus.ClearErrors(errs)
	f.bus.Stop()
	f.ring.Record(TraceBusError, f.state, f.ticks)

	line := append(f.traceBuf[:0], "bus error "...)
	line = append(line, errs.String()...)
	line = append(line, '\n', '\r')
	f.out.Enqueue(line)
	f.out.Flush()

	if !f.ready {
		f.beginConfiguration()
	}
}

func (f *Firmware) handleStart() {
	addr := f.cfg.Address << 1
	switch f.state {
	case StateIdle:
		if f.ready && !f.pending {
			return
		}
		f.bus.WriteData(addr)
		if f.ready {
			f.state = StateReadAddressedWrite
		} else {
			f.state = StateConfigAddressed
		}
	case StateReadByteReceived:
		f.bus.WriteData(addr)
		f.state = StateReadAddressedWrite
	case StateReadRepeatedStart:
		f.bus.WriteData(addr | 1)
		// NACK the single byte we are about to receive
		f.bus.SetAck(false)
		f.state = StateReadAddressedRead
	default:
		return
	}
	f.record(TraceStart)
}

func (f *Firmware) handleAddress() {
	switch f.state {
	case StateConfigAddressed:
		f.bus.EnableBufferInterrupt(true)
		f.bus.ClearAddress()
		f.bus.WriteData(f.cfg.ControlRegister)
		f.state = StateConfigRegisterSent
	case StateReadAddressedWrite:
		f.bus.ClearAddress()
		f.bus.WriteData(f.cfg.AxisRegisters[f.axis])
		f.state = StateReadRegisterSent
	case StateReadAddressedRead:
		f.bus.EnableBufferInterrupt(true)
		f.bus.ClearAddress()
		// Stop must be queued before the byte arrives so exactly one is read
		f.bus.Stop()
	default:
		// Stray address flag: clear it so it cannot retrigger the interrupt
		f.bus.ClearAddress()
		return
	}
	f.record(TraceAddress)
}

func (f *Firmware) handleByteTransferred() {
	switch f.state {
	case StateConfigValueSent:
		// Completion is signalled twice; the first one releases the bus
		if f.firstCompletion {
			f.firstCompletion = false
			f.bus.Stop()
			f.record(TraceByteDone)
			return
		}
		f.firstCompletion = true
		f.ready = true
		f.waitTicks = 0
		f.state = StateIdle
		f.stats.Configurations++
		f.record(TraceByteDone)
		f.record(TraceConfigured)
	case StateReadRegisterSent:
		f.bus.Start()
		f.state = StateReadRepeatedStart
		f.record(TraceByteDone)
	}
}

func (f *Firmware) handleTransmitEmpty() {
	if f.state != StateConfigRegisterSent {
		return
	}
	f.bus.EnableBufferInterrupt(false)
	f.bus.WriteData(f.cfg.ControlValue)
	f.state = StateConfigValueSent
	f.record(TraceTxEmpty)
}

func (f *Firmware) handleReceive() {
	if f.state != StateReadAddressedRead {
		// Drain the data register; nothing is waiting for this byte
		f.bus.ReadData()
		return
	}

	f.samples.set(f.axis, int8(f.bus.ReadData()))
	f.bus.EnableBufferInterrupt(false)
	f.bus.SetAck(true)

	if f.axis == AxisA {
		f.axis = AxisB
		f.state = StateReadByteReceived
		f.record(TraceRxData)
		f.bus.Start()
		return
	}

	f.pending = false
	f.waitTicks = 0
	f.consecutiveStalls = 0
	f.state = StateIdle
	f.record(TraceRxData)
	if f.samples.Complete() {
		f.stats.Cycles++
		f.record(TraceCycleDone)
		f.deliver(&f.samples)
	}
}

// beginConfiguration (re)starts the one-time configuration write. Safe to
// call at any point, including mid-configuration.
func (f *Firmware) beginConfiguration() {
	f.ready = false
	f.pending = false
	f.firstCompletion = true
	f.state = StateIdle
	f.stats.ConfigAttempts++
	f.bus.SetAck(true)
	f.bus.EnableBufferInterrupt(false)
	f.bus.Start()
}

// beginReadCycle starts a fresh two-axis read, discarding any partial state
func (f *Firmware) beginReadCycle() {
	f.pending = true
	f.axis = AxisA
	f.samples.reset()
	f.state = StateIdle
	f.bus.SetAck(true)
	f.bus.EnableBufferInterrupt(false)
	f.bus.Start()
}
