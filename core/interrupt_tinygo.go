//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks every interrupt source and returns the previous
// mask. Calls may nest.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the mask saved by disableInterrupts
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
