package core

import "sync/atomic"

// TxHandler continues an in-flight transfer each time the FIFO can take
// more data. Implementations perform a bounded, non-blocking write, usually
// through Channel.FillTxFIFO.
type TxHandler interface {
	ContinueTx(c *Channel)
}

// TxHandlerFunc adapts a function to TxHandler
type TxHandlerFunc func(c *Channel)

// ContinueTx implements TxHandler
func (f TxHandlerFunc) ContinueTx(c *Channel) {
	f(c)
}

// DefaultTxHandler refills the FIFO from the unsent range
var DefaultTxHandler TxHandler = TxHandlerFunc(func(c *Channel) {
	c.FillTxFIFO()
})

// FillTxFIFO writes bytes from [txIdx, txLen) until the FIFO refuses one,
// advances txIdx by the accepted count and returns it. Zero is valid.
func (c *Channel) FillTxFIFO() int {
	idx := atomic.LoadUint32(&c.txIdx)
	total := atomic.LoadUint32(&c.txLen)
	sent := uint32(0)
	for idx+sent < total {
		if !c.driver.FIFOWrite(c.ID, c.txBuf[idx+sent]) {
			break
		}
		sent++
	}
	if sent > 0 {
		atomic.StoreUint32(&c.txIdx, idx+sent)
	}
	return int(sent)
}

// ContinueTx is the TBE interrupt body. After completion it only masks the
// interrupt again, so late or spurious firings never touch state.
func (c *Channel) ContinueTx() {
	if c.TxDone() {
		c.driver.DisableIRQ(c.ID, IRQTxEmpty)
		return
	}

	h := c.txHandler
	if h == nil {
		h = DefaultTxHandler
	}
	h.ContinueTx(c)

	idx, total := c.TxProgress()
	RecordEvent(EvtTxIRQ, uint8(c.ID), idx, total)
	if idx != total {
		return
	}

	c.driver.DisableIRQ(c.ID, IRQTxEmpty)
	RecordEvent(EvtTxComplete, uint8(c.ID), idx, 0)
	if done := c.txDone; done != nil {
		c.txDone = nil
		done()
	}
}

// SignalOnComplete is a TxHandler that fills like the default engine and
// raises a software interrupt on Target the first time a transfer it
// drives completes. The latch lives as long as the handler value.
type SignalOnComplete struct {
	Notifier *Notifier
	Target   HartID

	latched uint32 // atomic
}

// NewSignalOnComplete creates a latching handler that releases target
func NewSignalOnComplete(n *Notifier, target HartID) *SignalOnComplete {
	return &SignalOnComplete{Notifier: n, Target: target}
}

// ContinueTx implements TxHandler
func (s *SignalOnComplete) ContinueTx(c *Channel) {
	c.FillTxFIFO()
	if !c.TxDone() {
		return
	}
	if atomic.CompareAndSwapUint32(&s.latched, 0, 1) {
		s.Notifier.Signal(s.Target)
	}
}

// Fired reports whether the signal has been raised
func (s *SignalOnComplete) Fired() bool {
	return atomic.LoadUint32(&s.latched) != 0
}
