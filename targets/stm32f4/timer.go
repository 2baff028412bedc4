//go:build stm32f4

package main

import "time"

// TIM3 on APB1; the timer clock is twice the 42 MHz bus clock
const (
	rccAPB1ENR = 0x40023840
	rccTIM3EN  = 1 << 1

	tim3Base = 0x40000400
	timCR1   = tim3Base + 0x00
	timDIER  = tim3Base + 0x0C
	timSR    = tim3Base + 0x10
	timPSC   = tim3Base + 0x28
	timARR   = tim3Base + 0x2C

	timerClock = 84000000
	timerCount = 10000 // counter rate after the prescaler, in Hz
)

// startTicker arms TIM3 to raise an update interrupt every period
func startTicker(period time.Duration) {
	reg(rccAPB1ENR).SetBits(rccTIM3EN)

	reg(timPSC).Set(timerClock/timerCount - 1)
	reg(timARR).Set(uint32(period*timerCount/time.Second) - 1)
	reg(timSR).Set(0)
	reg(timDIER).Set(1)
	reg(timCR1).Set(1)
}

// ackTick clears the update flag, reporting whether it was set
func ackTick() bool {
	sr := reg(timSR)
	if !sr.HasBits(1) {
		return false
	}
	sr.Set(0)
	return true
}
