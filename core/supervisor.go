package core

// Start begins the first configuration transaction. Target code calls it
// once, after the bus controller and its interrupts are enabled.
func (f *Firmware) Start() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	f.waitTicks = 0
	f.beginConfiguration()
}

// OnTick is the periodic timer interrupt entry.
//
// Until the device is configured it only watches the configuration deadline.
// Once ready it starts a read cycle whenever none is in flight, and abandons
// and restarts a cycle that has not completed within DeadlineTicks.
func (f *Firmware) OnTick() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	f.ticks++

	switch {
	case !f.ready:
		f.waitTicks++
		if f.waitTicks > f.cfg.DeadlineTicks {
			f.stall()
			f.beginConfiguration()
		}

	case !f.pending:
		f.waitTicks = 0
		f.beginReadCycle()

	default:
		f.waitTicks++
		if f.waitTicks <= f.cfg.DeadlineTicks {
			return
		}
		f.stall()
		f.consecutiveStalls++
		if f.cfg.ReconfigureAfter > 0 && f.consecutiveStalls >= f.cfg.ReconfigureAfter {
			f.consecutiveStalls = 0
			f.stats.Reconfigurations++
			f.beginConfiguration()
			return
		}
		f.beginReadCycle()
	}
}

// stall forces the bus free after a missed deadline
func (f *Firmware) stall() {
	f.stats.Stalls++
	f.record(TraceStall)
	f.bus.Stop()
	f.waitTicks = 0
}
