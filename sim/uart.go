package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"

	"hartlink/core"
)

var (
	// ErrUnknownChannel is returned for a channel with no simulated UART
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrNotClocked is returned when a UART is programmed while held in reset
	ErrNotClocked = errors.New("peripheral held in reset")
)

// UARTConfig sizes a simulated UART
type UARTConfig struct {
	TxDepth      int // TX FIFO bytes
	RxDepth      int // RX FIFO bytes
	BytesPerTick int // bytes shifted onto the line per Tick
}

// DefaultUARTConfig models a 16-byte MMUART FIFO
func DefaultUARTConfig() UARTConfig {
	return UARTConfig{TxDepth: 16, RxDepth: 16, BytesPerTick: 1}
}

// UART is a simulated 16550-style UART. Bytes accepted by the TX FIFO leave
// it on Tick; bytes arriving on the line are pushed with Inject.
type UART struct {
	ID     core.ChannelID
	Source core.IRQSource
	ctrl   *Controller
	cfg    UARTConfig

	mu       sync.Mutex
	clocked  bool
	domain   core.HartID
	baud     uint32
	format   core.FrameFormat
	tx       *FifoBuffer
	rx       *FifoBuffer
	enabled  core.IRQMask
	trace    []byte // every byte the TX FIFO accepted
	output   bytes.Buffer
	line     io.Writer
	overruns int
}

// NewUART creates a UART held in reset
func NewUART(id core.ChannelID, src core.IRQSource, ctrl *Controller, cfg UARTConfig) *UART {
	if cfg.BytesPerTick <= 0 {
		cfg.BytesPerTick = 1
	}
	return &UART{
		ID:     id,
		Source: src,
		ctrl:   ctrl,
		cfg:    cfg,
		tx:     NewFifoBuffer(cfg.TxDepth),
		rx:     NewFifoBuffer(cfg.RxDepth),
	}
}

func (u *UART) configureClockReset(domain core.HartID, on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.clocked = on
	u.domain = domain
	if !on {
		u.tx.Reset()
		u.rx.Reset()
		u.enabled = 0
	}
}

func (u *UART) init(baud uint32, format core.FrameFormat) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.clocked {
		return ErrNotClocked
	}
	if baud == 0 {
		return fmt.Errorf("uart %d: invalid baud rate 0", u.ID)
	}
	u.baud = baud
	u.format = format
	u.tx.Reset()
	u.rx.Reset()
	return nil
}

// Clocked reports whether the UART is out of reset
func (u *UART) Clocked() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.clocked
}

// Line returns the programmed baud rate and frame format
func (u *UART) Line() (uint32, core.FrameFormat) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.baud, u.format
}

func (u *UART) fifoWrite(b byte) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.clocked || !u.tx.Push(b) {
		return false
	}
	u.trace = append(u.trace, b)
	return true
}

func (u *UART) fifoAvailable() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Available()
}

func (u *UART) fifoRead(buf []byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Read(buf)
}

func (u *UART) enableIRQ(mask core.IRQMask) {
	u.mu.Lock()
	u.enabled |= mask
	u.mu.Unlock()
	u.ctrl.Notify()
}

func (u *UART) disableIRQ(mask core.IRQMask) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enabled &^= mask
}

// pendingLocked must be called with u.mu held
func (u *UART) pendingLocked() core.IRQMask {
	var pending core.IRQMask
	if u.enabled&core.IRQTxEmpty != 0 && u.tx.IsEmpty() {
		pending |= core.IRQTxEmpty
	}
	if u.enabled&core.IRQRxReady != 0 && !u.rx.IsEmpty() {
		pending |= core.IRQRxReady
	}
	return pending
}

func (u *UART) pending() core.IRQMask {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pendingLocked()
}

// Asserted reports the interrupt line level seen by the controller
func (u *UART) Asserted() bool {
	return u.pending() != 0
}

// txEmpty is polled by blocking writes. A stopped machine never drains, so
// the polling hart is unwound here.
func (u *UART) txEmpty() bool {
	u.mu.Lock()
	empty := u.tx.IsEmpty()
	u.mu.Unlock()
	if !empty && u.ctrl.Stopped() {
		runtime.Goexit()
	}
	return empty
}

// Tick shifts up to BytesPerTick bytes out of the TX FIFO onto the line
func (u *UART) Tick() int {
	buf := make([]byte, u.cfg.BytesPerTick)

	u.mu.Lock()
	n := u.tx.Read(buf)
	line := u.line
	if n > 0 && line == nil {
		u.output.Write(buf[:n])
	}
	u.mu.Unlock()

	if n == 0 {
		return 0
	}
	if line != nil {
		if _, err := line.Write(buf[:n]); err != nil {
			glog.Warningf("uart %d: line write: %v", u.ID, err)
		}
	}
	u.ctrl.Notify()
	return n
}

// Inject delivers bytes arriving on the line into the RX FIFO. Bytes that
// do not fit are lost as an overrun, as on hardware.
func (u *UART) Inject(p []byte) int {
	u.mu.Lock()
	if !u.clocked {
		u.mu.Unlock()
		return 0
	}
	n := u.rx.Write(p)
	if lost := len(p) - n; lost > 0 {
		u.overruns += lost
		glog.V(1).Infof("uart %d: rx overrun, %d bytes lost", u.ID, lost)
	}
	u.mu.Unlock()

	if n > 0 {
		u.ctrl.Notify()
	}
	return n
}

// Attach sends shifted bytes to w instead of the internal output buffer
func (u *UART) Attach(w io.Writer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.line = w
}

// Feed copies bytes from r into the RX FIFO until r returns io.EOF or ctx
// is done. Other read errors are retried.
func (u *UART) Feed(ctx context.Context, r io.Reader) error {
	buf := make([]byte, u.cfg.RxDepth)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			u.Inject(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			glog.Warningf("uart %d: line read: %v", u.ID, err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Run ticks the shifter every interval until ctx is done
func (u *UART) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.Tick()
		}
	}
}

// Trace returns every byte accepted by the TX FIFO so far
func (u *UART) Trace() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.trace...)
}

// TakeOutput returns and clears the bytes shifted out with no line attached
func (u *UART) TakeOutput() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := append([]byte(nil), u.output.Bytes()...)
	u.output.Reset()
	return out
}

// Overruns returns the number of received bytes dropped on a full RX FIFO
func (u *UART) Overruns() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.overruns
}

// Bus exposes a set of simulated UARTs as one core.UARTDriver
type Bus struct {
	mu    sync.RWMutex
	uarts map[core.ChannelID]*UART
}

var _ core.UARTDriver = (*Bus)(nil)

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{uarts: make(map[core.ChannelID]*UART)}
}

// Add registers a UART on the bus
func (b *Bus) Add(u *UART) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uarts[u.ID] = u
}

// UART returns the simulated UART of a channel
func (b *Bus) UART(ch core.ChannelID) (*UART, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.uarts[ch]
	return u, ok
}

// ConfigureClockReset implements core.UARTDriver
func (b *Bus) ConfigureClockReset(p core.Peripheral, domain core.HartID, on bool) error {
	u, ok := b.UART(core.ChannelID(p - core.PeriphMMUART0))
	if !ok {
		return fmt.Errorf("peripheral %d: %w", p, ErrUnknownChannel)
	}
	u.configureClockReset(domain, on)
	return nil
}

// Init implements core.UARTDriver
func (b *Bus) Init(ch core.ChannelID, baud uint32, format core.FrameFormat) error {
	u, ok := b.UART(ch)
	if !ok {
		return fmt.Errorf("channel %d: %w", ch, ErrUnknownChannel)
	}
	return u.init(baud, format)
}

// FIFOWrite implements core.UARTDriver
func (b *Bus) FIFOWrite(ch core.ChannelID, c byte) bool {
	u, ok := b.UART(ch)
	return ok && u.fifoWrite(c)
}

// FIFOReadAvailable implements core.UARTDriver
func (b *Bus) FIFOReadAvailable(ch core.ChannelID) int {
	if u, ok := b.UART(ch); ok {
		return u.fifoAvailable()
	}
	return 0
}

// FIFORead implements core.UARTDriver
func (b *Bus) FIFORead(ch core.ChannelID, buf []byte) int {
	if u, ok := b.UART(ch); ok {
		return u.fifoRead(buf)
	}
	return 0
}

// EnableIRQ implements core.UARTDriver
func (b *Bus) EnableIRQ(ch core.ChannelID, mask core.IRQMask) {
	if u, ok := b.UART(ch); ok {
		u.enableIRQ(mask)
	}
}

// DisableIRQ implements core.UARTDriver
func (b *Bus) DisableIRQ(ch core.ChannelID, mask core.IRQMask) {
	if u, ok := b.UART(ch); ok {
		u.disableIRQ(mask)
	}
}

// PendingIRQ implements core.UARTDriver
func (b *Bus) PendingIRQ(ch core.ChannelID) core.IRQMask {
	if u, ok := b.UART(ch); ok {
		return u.pending()
	}
	return 0
}

// TxHoldingEmpty implements core.UARTDriver
func (b *Bus) TxHoldingEmpty(ch core.ChannelID) bool {
	u, ok := b.UART(ch)
	return !ok || u.txEmpty()
}

// TxComplete implements core.UARTDriver. Shifting is instantaneous per
// tick, so an empty FIFO means the line is idle.
func (b *Bus) TxComplete(ch core.ChannelID) bool {
	u, ok := b.UART(ch)
	return !ok || u.txEmpty()
}
