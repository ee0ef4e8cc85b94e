package core

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrNotConfigured is returned by writes issued before Configure
	ErrNotConfigured = errors.New("channel not configured")
	// ErrBufferTooLarge is returned when a transmit buffer exceeds the index range
	ErrBufferTooLarge = errors.New("transmit buffer too large")
)

// ConfigError records a driver failure while bringing a channel up
type ConfigError struct {
	Channel ChannelID
	Op      string
	Err     error
}

func (e *ConfigError) Error() string {
	return "uart " + utoa(uint32(e.Channel)) + " " + e.Op + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultRxBufferSize matches the 16-byte FIFO of an MMUART
const DefaultRxBufferSize = 16

// ChannelConfig holds the line settings applied by Configure
type ChannelConfig struct {
	Baud   uint32
	Format FrameFormat
	// Domain is the hart whose clock domain the peripheral is attached to
	Domain HartID
}

// DefaultChannelConfig returns 115200 8N1 in the given hart domain
func DefaultChannelConfig(domain HartID) ChannelConfig {
	return ChannelConfig{
		Baud:   Baud115200,
		Format: Format8N1,
		Domain: domain,
	}
}

// RxHandler is called on the owning hart after a receive interrupt stored a payload
type RxHandler func(c *Channel, irqCount uint32)

// Channel is one interrupt-driven serial endpoint.
//
// The receive buffer is single-producer (the RX interrupt) single-consumer
// (the hart main loop). rxLen is the only synchronization token: nonzero
// means an unread payload is present.
type Channel struct {
	ID     ChannelID
	driver UARTDriver

	configured bool
	cfg        ChannelConfig

	// Receive side
	rxBuf     []byte
	rxLen     uint32 // atomic
	rxIRQs    uint32 // atomic
	rxHandler RxHandler

	// Transmit side. txBuf is borrowed from the caller until txIdx == txLen.
	txBuf     []byte
	txIdx     uint32 // atomic
	txLen     uint32 // atomic
	txHandler TxHandler
	txDone    func()
}

// NewChannel creates a channel with a receive buffer of rxCapacity bytes
func NewChannel(id ChannelID, driver UARTDriver, rxCapacity int) *Channel {
	if rxCapacity <= 0 {
		rxCapacity = DefaultRxBufferSize
	}
	return &Channel{
		ID:     id,
		driver: driver,
		rxBuf:  make([]byte, rxCapacity),
	}
}

// Configure brings the channel out of reset, enables its clock and programs
// the line. Calling it again with the same settings is a no-op.
func (c *Channel) Configure(cfg ChannelConfig) error {
	if c.configured && c.cfg == cfg {
		return nil
	}
	if err := c.driver.ConfigureClockReset(PeripheralFor(c.ID), cfg.Domain, true); err != nil {
		return &ConfigError{Channel: c.ID, Op: "clock", Err: err}
	}
	if err := c.driver.Init(c.ID, cfg.Baud, cfg.Format); err != nil {
		return &ConfigError{Channel: c.ID, Op: "init", Err: err}
	}
	c.cfg = cfg
	c.configured = true
	DebugPrintln("[UART] channel " + utoa(uint32(c.ID)) + " configured baud=" + utoa(cfg.Baud))
	return nil
}

// Configured reports whether Configure has succeeded
func (c *Channel) Configured() bool {
	return c.configured
}

// Config returns the active line settings
func (c *Channel) Config() ChannelConfig {
	return c.cfg
}

// RxCapacity returns the fixed size of the receive buffer
func (c *Channel) RxCapacity() int {
	return len(c.rxBuf)
}

// WriteBlocking writes p synchronously. Each byte is offered to the FIFO
// and, while refused, the transmit holding register is polled until empty.
// There is no timeout.
func (c *Channel) WriteBlocking(p []byte) error {
	if !c.configured {
		return ErrNotConfigured
	}
	for _, b := range p {
		for !c.driver.FIFOWrite(c.ID, b) {
			for !c.driver.TxHoldingEmpty(c.ID) {
				relax()
			}
		}
	}
	return nil
}

// WriteAsync registers p as the pending transmit payload, arms the TBE
// interrupt and returns immediately. done, if not nil, runs on the owning
// hart once the last byte has been accepted by the FIFO.
//
// p is borrowed until TxDone reports true. Issuing a new write while one is
// in flight is a caller error.
func (c *Channel) WriteAsync(p []byte, done func()) error {
	if !c.configured {
		return ErrNotConfigured
	}
	if uint64(len(p)) > uint64(^uint32(0)) {
		return ErrBufferTooLarge
	}
	if len(p) == 0 {
		if done != nil {
			done()
		}
		return nil
	}

	state := disableInterrupts()
	c.txBuf = p
	c.txDone = done
	atomic.StoreUint32(&c.txIdx, 0)
	atomic.StoreUint32(&c.txLen, uint32(len(p)))
	restoreInterrupts(state)

	c.driver.EnableIRQ(c.ID, IRQTxEmpty)
	return nil
}

// SetTxHandler replaces the continuation handler. nil restores the default.
// Must not be called while a transfer is in flight.
func (c *Channel) SetTxHandler(h TxHandler) {
	c.txHandler = h
}

// SetRxHandler installs the hook run after each stored receive payload
func (c *Channel) SetRxHandler(h RxHandler) {
	c.rxHandler = h
}

// EnableRx arms the data-available interrupt
func (c *Channel) EnableRx() {
	c.driver.EnableIRQ(c.ID, IRQRxReady)
}

// DisableRx masks the data-available interrupt
func (c *Channel) DisableRx() {
	c.driver.DisableIRQ(c.ID, IRQRxReady)
}

// TxDone reports that the current async payload has been handed to the FIFO
func (c *Channel) TxDone() bool {
	return atomic.LoadUint32(&c.txIdx) == atomic.LoadUint32(&c.txLen)
}

// TxComplete reports that the async payload is done and the line is idle
func (c *Channel) TxComplete() bool {
	return c.TxDone() && c.driver.TxComplete(c.ID)
}

// TxProgress returns the transmit index and total length
func (c *Channel) TxProgress() (idx, total uint32) {
	return atomic.LoadUint32(&c.txIdx), atomic.LoadUint32(&c.txLen)
}

// PollReceived returns a copy of the unread payload and clears the counter.
// It returns nil, false when nothing is pending.
func (c *Channel) PollReceived() ([]byte, bool) {
	n := atomic.LoadUint32(&c.rxLen)
	if n == 0 {
		return nil, false
	}
	payload := make([]byte, n)
	copy(payload, c.rxBuf[:n])
	atomic.StoreUint32(&c.rxLen, 0)
	return payload, true
}

// Pending returns the length of the unread payload
func (c *Channel) Pending() int {
	return int(atomic.LoadUint32(&c.rxLen))
}

// RxInterrupts returns the number of receive interrupts that stored data
func (c *Channel) RxInterrupts() uint32 {
	return atomic.LoadUint32(&c.rxIRQs)
}

// HandleInterrupt is the external interrupt handler of the channel.
// It dispatches on the asserted sources reported by the driver.
func (c *Channel) HandleInterrupt() {
	pending := c.driver.PendingIRQ(c.ID)
	if pending&IRQRxReady != 0 {
		c.HandleRx()
	}
	if pending&IRQTxEmpty != 0 {
		c.ContinueTx()
	}
}

// HandleRx drains the RX FIFO into the receive buffer. An unread payload
// is overwritten; an interrupt with no data changes nothing.
func (c *Channel) HandleRx() {
	if c.driver.FIFOReadAvailable(c.ID) == 0 {
		return
	}
	n := c.driver.FIFORead(c.ID, c.rxBuf)
	if n <= 0 {
		return
	}
	atomic.StoreUint32(&c.rxLen, uint32(n))
	count := atomic.AddUint32(&c.rxIRQs, 1)
	RecordEvent(EvtRxIRQ, uint8(c.ID), count, uint32(n))

	if h := c.rxHandler; h != nil {
		h(c, count)
	}
}
