package core

// ChannelID identifies one UART instance (MMUART0..MMUART4 on PolarFire SoC)
type ChannelID uint8

// Peripheral identifies a clock/reset gated peripheral block
type Peripheral uint8

// Peripheral blocks that carry a UART
const (
	PeriphMMUART0 Peripheral = iota
	PeriphMMUART1
	PeriphMMUART2
	PeriphMMUART3
	PeriphMMUART4
)

// PeripheralFor returns the clock/reset block of a channel
func PeripheralFor(ch ChannelID) Peripheral {
	return PeriphMMUART0 + Peripheral(ch)
}

// IRQMask selects UART interrupt sources
type IRQMask uint8

const (
	IRQRxReady IRQMask = 1 << 0 // RBF: received data available
	IRQTxEmpty IRQMask = 1 << 1 // TBE: transmit holding register empty
)

// FrameFormat encodes data bits, parity and stop bits of a line
type FrameFormat uint8

const (
	Data5Bits FrameFormat = 0x00
	Data6Bits FrameFormat = 0x01
	Data7Bits FrameFormat = 0x02
	Data8Bits FrameFormat = 0x03

	OneStopBit FrameFormat = 0x00
	TwoStopBit FrameFormat = 0x04

	NoParity   FrameFormat = 0x00
	OddParity  FrameFormat = 0x08
	EvenParity FrameFormat = 0x18

	// Format8N1 is 8 data bits, no parity, one stop bit
	Format8N1 = Data8Bits | NoParity | OneStopBit
)

// Common line rates
const (
	Baud9600   = 9600
	Baud57600  = 57600
	Baud115200 = 115200
)

// UARTDriver is the register-level UART interface that core code uses.
// Platform-specific implementations handle the actual hardware.
type UARTDriver interface {
	// ConfigureClockReset gates the clock and reset of a peripheral for a hart domain
	ConfigureClockReset(p Peripheral, domain HartID, on bool) error

	// Init programs baud rate and frame format of a channel
	Init(ch ChannelID, baud uint32, format FrameFormat) error

	// FIFOWrite offers one byte to the TX FIFO and reports whether it was accepted
	FIFOWrite(ch ChannelID, b byte) bool

	// FIFOReadAvailable returns the number of bytes waiting in the RX FIFO
	FIFOReadAvailable(ch ChannelID) int

	// FIFORead drains up to len(buf) bytes from the RX FIFO
	FIFORead(ch ChannelID, buf []byte) int

	// EnableIRQ enables the given interrupt sources of a channel
	EnableIRQ(ch ChannelID, mask IRQMask)

	// DisableIRQ disables the given interrupt sources of a channel
	DisableIRQ(ch ChannelID, mask IRQMask)

	// PendingIRQ reports which enabled sources are currently asserted
	PendingIRQ(ch ChannelID) IRQMask

	// TxHoldingEmpty reports the transmit holding register / FIFO is empty
	TxHoldingEmpty(ch ChannelID) bool

	// TxComplete reports that every accepted byte has left the shifter
	TxComplete(ch ChannelID) bool
}
