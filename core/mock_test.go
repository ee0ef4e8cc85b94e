package core

import (
	"sync"
	"time"
)

// mockUART is a single-channel UARTDriver with a scripted FIFO.
// budget is how many more bytes the TX FIFO accepts; -1 is unlimited.
type mockUART struct {
	clockOn  map[Peripheral]HartID
	inits    int
	baud     uint32
	format   FrameFormat
	budget   int
	depth    int
	written  []byte
	enabled  IRQMask
	rx       []byte
	rxReads  int
	txIdle   bool
	clockErr error
}

func newMockUART() *mockUART {
	return &mockUART{
		clockOn: make(map[Peripheral]HartID),
		budget:  -1,
		depth:   16,
		txIdle:  true,
	}
}

func (m *mockUART) ConfigureClockReset(p Peripheral, domain HartID, on bool) error {
	if m.clockErr != nil {
		return m.clockErr
	}
	if on {
		m.clockOn[p] = domain
	} else {
		delete(m.clockOn, p)
	}
	return nil
}

func (m *mockUART) Init(ch ChannelID, baud uint32, format FrameFormat) error {
	m.inits++
	m.baud = baud
	m.format = format
	return nil
}

func (m *mockUART) FIFOWrite(ch ChannelID, b byte) bool {
	if m.budget == 0 {
		return false
	}
	if m.budget > 0 {
		m.budget--
	}
	m.written = append(m.written, b)
	return true
}

func (m *mockUART) FIFOReadAvailable(ch ChannelID) int {
	return len(m.rx)
}

func (m *mockUART) FIFORead(ch ChannelID, buf []byte) int {
	m.rxReads++
	n := copy(buf, m.rx)
	m.rx = m.rx[n:]
	return n
}

func (m *mockUART) EnableIRQ(ch ChannelID, mask IRQMask) {
	m.enabled |= mask
}

func (m *mockUART) DisableIRQ(ch ChannelID, mask IRQMask) {
	m.enabled &^= mask
}

func (m *mockUART) PendingIRQ(ch ChannelID) IRQMask {
	var pending IRQMask
	if len(m.rx) > 0 {
		pending |= IRQRxReady
	}
	if m.budget != 0 {
		pending |= IRQTxEmpty
	}
	return pending & m.enabled
}

// TxHoldingEmpty models the FIFO draining while it is polled
func (m *mockUART) TxHoldingEmpty(ch ChannelID) bool {
	if m.budget == 0 {
		m.budget = m.depth
	}
	return true
}

func (m *mockUART) TxComplete(ch ChannelID) bool {
	return m.txIdle
}

// mockController records software interrupt traffic between harts
type mockController struct {
	mu        sync.Mutex
	msip      map[HartID]bool
	raised    map[HartID]int
	cleared   map[HartID]int
	priority  map[IRQSource]uint32
	enabled   map[IRQSource]bool
	threshold uint32
	wake      chan struct{}
}

func newMockController() *mockController {
	return &mockController{
		msip:     make(map[HartID]bool),
		raised:   make(map[HartID]int),
		cleared:  make(map[HartID]int),
		priority: make(map[IRQSource]uint32),
		enabled:  make(map[IRQSource]bool),
		wake:     make(chan struct{}, 1),
	}
}

func (c *mockController) SetPriority(src IRQSource, level uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.priority[src] = level
}

func (c *mockController) SetPriorityThreshold(level uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = level
}

func (c *mockController) EnableSource(src IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[src] = true
}

func (c *mockController) DisableSource(src IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[src] = false
}

func (c *mockController) RaiseSoftwareInterrupt(h HartID) {
	c.mu.Lock()
	c.msip[h] = true
	c.raised[h]++
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *mockController) ClearSoftwareInterrupt(h HartID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msip[h] = false
	c.cleared[h]++
}

func (c *mockController) pending(h HartID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msip[h]
}

func (c *mockController) raisedCount(h HartID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raised[h]
}

// mockHart wakes on every raised software interrupt or after one
// simulated wake cycle
type mockHart struct {
	id    HartID
	ctrl  *mockController
	irqOn bool
	mu    sync.Mutex
	wakes int
}

const wakeCycle = time.Millisecond

func (h *mockHart) ID() HartID {
	return h.id
}

func (h *mockHart) SoftwarePending() bool {
	return h.ctrl.pending(h.id)
}

func (h *mockHart) WaitForInterrupt() {
	select {
	case <-h.ctrl.wake:
	case <-time.After(wakeCycle):
	}
	h.mu.Lock()
	h.wakes++
	h.mu.Unlock()
}

func (h *mockHart) EnableInterrupts() {
	h.irqOn = true
}

func newConfiguredChannel(rxCapacity int) (*Channel, *mockUART) {
	drv := newMockUART()
	ch := NewChannel(2, drv, rxCapacity)
	if err := ch.Configure(DefaultChannelConfig(2)); err != nil {
		panic(err)
	}
	return ch, drv
}
