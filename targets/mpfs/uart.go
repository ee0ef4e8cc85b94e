//go:build tinygo && mpfs

package main

import (
	"errors"
	"runtime/volatile"
	"unsafe"

	"hartlink/core"
)

const (
	sysregClockCR = 0x20002084 // SUBBLK_CLOCK_CR
	sysregResetCR = 0x20002088 // SOFT_RESET_CR
	mmuart0Bit    = 5          // MMUART0..4 are bits 5..9

	pclkHz   = 150000000
	fifoSize = 16
)

// 16550 register offsets, 32-bit stride
const (
	regRBR = 0x00 // THR on write, DLR with DLAB
	regIER = 0x04 // DMR with DLAB
	regFCR = 0x08
	regLCR = 0x0C
	regLSR = 0x14

	ierERBFI = 0x01
	ierETBEI = 0x02

	fcrEnable = 0x01
	fcrClear  = 0x06

	lcrDLAB = 0x80

	lsrDR   = 0x01
	lsrTHRE = 0x20
	lsrTEMT = 0x40
)

var uartBase = [5]uintptr{0x20000000, 0x20100000, 0x20102000, 0x20104000, 0x20106000}

var errNoUART = errors.New("no such MMUART")

// MMUART drives the five MSS UARTs. FIFOWrite tracks how much of the TX
// FIFO is free since THRE only reports an empty FIFO.
type MMUART struct {
	budget [5]uint8
}

var _ core.UARTDriver = (*MMUART)(nil)

func uartReg(ch core.ChannelID, off uintptr) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(uartBase[ch] + off))
}

// ConfigureClockReset implements core.UARTDriver
func (u *MMUART) ConfigureClockReset(p core.Peripheral, domain core.HartID, on bool) error {
	if p > core.PeriphMMUART4 {
		return errNoUART
	}
	bit := uint32(1) << (mmuart0Bit + uint32(p-core.PeriphMMUART0))
	clock := (*volatile.Register32)(unsafe.Pointer(uintptr(sysregClockCR)))
	reset := (*volatile.Register32)(unsafe.Pointer(uintptr(sysregResetCR)))
	if on {
		clock.SetBits(bit)
		reset.ClearBits(bit)
	} else {
		reset.SetBits(bit)
		clock.ClearBits(bit)
	}
	return nil
}

// Init implements core.UARTDriver
func (u *MMUART) Init(ch core.ChannelID, baud uint32, format core.FrameFormat) error {
	if int(ch) >= len(uartBase) {
		return errNoUART
	}
	if baud == 0 {
		return errors.New("invalid baud rate")
	}
	div := (pclkHz + 8*baud) / (16 * baud)

	uartReg(ch, regLCR).Set(lcrDLAB)
	uartReg(ch, regRBR).Set(uint8(div))
	uartReg(ch, regIER).Set(uint8(div >> 8))
	uartReg(ch, regLCR).Set(uint8(format))
	uartReg(ch, regFCR).Set(fcrEnable | fcrClear)
	uartReg(ch, regIER).Set(0)
	u.budget[ch] = 0
	return nil
}

// FIFOWrite implements core.UARTDriver
func (u *MMUART) FIFOWrite(ch core.ChannelID, b byte) bool {
	if u.budget[ch] == 0 {
		if uartReg(ch, regLSR).Get()&lsrTHRE == 0 {
			return false
		}
		u.budget[ch] = fifoSize
	}
	uartReg(ch, regRBR).Set(b)
	u.budget[ch]--
	return true
}

// FIFOReadAvailable implements core.UARTDriver. The LSR only tells whether
// data is present, not how much.
func (u *MMUART) FIFOReadAvailable(ch core.ChannelID) int {
	if uartReg(ch, regLSR).Get()&lsrDR != 0 {
		return 1
	}
	return 0
}

// FIFORead implements core.UARTDriver
func (u *MMUART) FIFORead(ch core.ChannelID, buf []byte) int {
	n := 0
	for n < len(buf) && uartReg(ch, regLSR).Get()&lsrDR != 0 {
		buf[n] = uartReg(ch, regRBR).Get()
		n++
	}
	return n
}

// EnableIRQ implements core.UARTDriver
func (u *MMUART) EnableIRQ(ch core.ChannelID, mask core.IRQMask) {
	uartReg(ch, regIER).SetBits(ierBits(mask))
}

// DisableIRQ implements core.UARTDriver
func (u *MMUART) DisableIRQ(ch core.ChannelID, mask core.IRQMask) {
	uartReg(ch, regIER).ClearBits(ierBits(mask))
}

// PendingIRQ implements core.UARTDriver
func (u *MMUART) PendingIRQ(ch core.ChannelID) core.IRQMask {
	ier := uartReg(ch, regIER).Get()
	lsr := uartReg(ch, regLSR).Get()
	var pending core.IRQMask
	if ier&ierERBFI != 0 && lsr&lsrDR != 0 {
		pending |= core.IRQRxReady
	}
	if ier&ierETBEI != 0 && lsr&lsrTHRE != 0 {
		pending |= core.IRQTxEmpty
	}
	return pending
}

// TxHoldingEmpty implements core.UARTDriver
func (u *MMUART) TxHoldingEmpty(ch core.ChannelID) bool {
	return uartReg(ch, regLSR).Get()&lsrTHRE != 0
}

// TxComplete implements core.UARTDriver
func (u *MMUART) TxComplete(ch core.ChannelID) bool {
	return uartReg(ch, regLSR).Get()&lsrTEMT != 0
}

func ierBits(mask core.IRQMask) uint8 {
	var bits uint8
	if mask&core.IRQRxReady != 0 {
		bits |= ierERBFI
	}
	if mask&core.IRQTxEmpty != 0 {
		bits |= ierETBEI
	}
	return bits
}
