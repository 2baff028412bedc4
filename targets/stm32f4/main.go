//go:build stm32f4

package main

import (
	"device/stm32"
	"machine"
	"runtime/interrupt"
	"time"

	"accelmon/core"
)

// TickPeriod is the supervisor tick interval
const TickPeriod = 20 * time.Millisecond

// Interrupt handlers reach the hardware through these
var (
	fw   *core.Firmware
	bus  *i2cBus
	xfer *dmaTransfer
)

func main() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Polled setup first: pins, clocks and the identity probe
	err := machine.I2C1.Configure(machine.I2CConfig{Frequency: 100 * machine.KHz})
	if err != nil {
		halt(led, 2)
	}
	// UART1 is wired to USART2 on this board
	machine.UART1.Configure(machine.UARTConfig{BaudRate: 9600})

	if _, err := core.ProbeDevice(machine.I2C1, core.DefaultAddress); err != nil {
		// Keep going: configuration retries until the device answers
		machine.UART1.Write([]byte("probe failed\n\r"))
	}

	bus = newI2CBus()
	xfer = newDMATransfer()
	fw = core.New(bus, xfer, core.DefaultConfig())

	i2cEvent := interrupt.New(stm32.IRQ_I2C1_EV, func(interrupt.Interrupt) {
		fw.OnBusEvent()
	})
	i2cError := interrupt.New(stm32.IRQ_I2C1_ER, func(interrupt.Interrupt) {
		fw.OnBusError(bus.pendingErrors())
	})
	dmaDone := interrupt.New(stm32.IRQ_DMA1_Stream6, func(interrupt.Interrupt) {
		if xfer.completed() {
			fw.OnTransferComplete()
		}
	})
	tick := interrupt.New(stm32.IRQ_TIM3, func(interrupt.Interrupt) {
		if ackTick() {
			fw.OnTick()
		}
	})

	i2cEvent.Enable()
	i2cError.Enable()
	dmaDone.Enable()
	tick.Enable()

	bus.enableInterrupts()
	startTicker(TickPeriod)

	fw.Start()

	for {
		led.Set(fw.Ready())
		time.Sleep(250 * time.Millisecond)
	}
}

// halt blinks the LED forever after a boot failure
func halt(led machine.Pin, count int) {
	for {
		for i := 0; i < count; i++ {
			led.High()
			time.Sleep(150 * time.Millisecond)
			led.Low()
			time.Sleep(150 * time.Millisecond)
		}
		time.Sleep(time.Second)
	}
}
