//go:build !tinygo

package core

// irqState stands in for the saved interrupt mask on host builds
type irqState uintptr

// disableInterrupts is a no-op on regular Go; host tests drive the
// handlers from a single goroutine
func disableInterrupts() irqState {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state irqState) {}
