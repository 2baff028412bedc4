//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"
)

// USART2 TX is served by DMA1 stream 6, channel 4
const (
	rccAHB1ENR  = 0x40023830
	rccDMA1EN   = 1 << 21
	dma1Base    = 0x40026000
	dmaHISR     = dma1Base + 0x04
	dmaHIFCR    = dma1Base + 0x0C
	dmaStream   = 6
	dmaStreamCR = dma1Base + 0x10 + 0x18*dmaStream

	usart2Base = 0x40004400
	usart2DR   = usart2Base + 0x04
	usart2CR3  = usart2Base + 0x14
	usartDMAT  = 1 << 7
)

// Stream CR bits
const (
	sxcrEN      = 1 << 0
	sxcrTCIE    = 1 << 4
	sxcrDIRM2P  = 1 << 6
	sxcrMINC    = 1 << 10
	sxcrChannel = 4 << 25
)

// Stream 6 flags in HISR/HIFCR
const (
	stream6TC  = 1 << 21
	stream6All = 0x3D << 16
)

// dmaTransfer is the output pipeline's transfer engine
type dmaTransfer struct {
	cr   *volatile.Register32
	ndtr *volatile.Register32
	par  *volatile.Register32
	m0ar *volatile.Register32
	hisr *volatile.Register32
	ifcr *volatile.Register32
}

func newDMATransfer() *dmaTransfer {
	reg(rccAHB1ENR).SetBits(rccDMA1EN)
	reg(usart2CR3).SetBits(usartDMAT)

	d := &dmaTransfer{
		cr:   reg(dmaStreamCR),
		ndtr: reg(dmaStreamCR + 0x04),
		par:  reg(dmaStreamCR + 0x08),
		m0ar: reg(dmaStreamCR + 0x0C),
		hisr: reg(dmaHISR),
		ifcr: reg(dmaHIFCR),
	}
	d.cr.Set(0)
	d.ifcr.Set(stream6All)
	d.par.Set(usart2DR)
	return d
}

func (d *dmaTransfer) Busy() bool {
	return d.cr.HasBits(sxcrEN) || d.hisr.HasBits(stream6TC)
}

func (d *dmaTransfer) Begin(buf []byte) {
	if len(buf) == 0 {
		return
	}
	d.ifcr.Set(stream6All)
	d.m0ar.Set(uint32(uintptr(unsafe.Pointer(&buf[0]))))
	d.ndtr.Set(uint32(len(buf)))
	d.cr.Set(sxcrChannel | sxcrMINC | sxcrDIRM2P | sxcrTCIE | sxcrEN)
}

func (d *dmaTransfer) AckComplete() {
	d.ifcr.Set(stream6TC)
}

// completed reports whether the stream interrupt was a transfer complete;
// other flags are cleared here
func (d *dmaTransfer) completed() bool {
	if d.hisr.HasBits(stream6TC) {
		return true
	}
	d.ifcr.Set(stream6All)
	return false
}
