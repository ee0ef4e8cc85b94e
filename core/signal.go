package core

import "sync/atomic"

// Notifier raises software interrupts on other harts.
// A signal carries no payload: everything the target needs must already be
// written before Signal is called.
type Notifier struct {
	ctrl InterruptController
	sent uint32 // atomic
}

// NewNotifier creates a notifier bound to the platform controller
func NewNotifier(ctrl InterruptController) *Notifier {
	return &Notifier{ctrl: ctrl}
}

// Signal raises the software interrupt owned by h. Fire-and-forget.
func (n *Notifier) Signal(h HartID) {
	count := atomic.AddUint32(&n.sent, 1)
	RecordEvent(EvtSignalSent, uint8(h), count, 0)
	n.ctrl.RaiseSoftwareInterrupt(h)
}

// Sent returns how many signals this notifier has raised
func (n *Notifier) Sent() uint32 {
	return atomic.LoadUint32(&n.sent)
}

// CoreSignals is the per-hart software interrupt state. The counter is
// only written by the owning hart's handler; other harts may read it.
type CoreSignals struct {
	hart   HartID
	ctrl   InterruptController
	count  uint32 // atomic, wraps
	action func()
}

// NewCoreSignals creates the signal state of hart h
func NewCoreSignals(h HartID, ctrl InterruptController) *CoreSignals {
	return &CoreSignals{hart: h, ctrl: ctrl}
}

// SetAction installs a release action run after each received signal.
// It must be bounded and must not block.
func (s *CoreSignals) SetAction(action func()) {
	s.action = action
}

// OnSignalReceived is the software interrupt handler of the owning hart
func (s *CoreSignals) OnSignalReceived() {
	count := atomic.AddUint32(&s.count, 1)
	s.ctrl.ClearSoftwareInterrupt(s.hart)
	RecordEvent(EvtSignalRecv, uint8(s.hart), count, 0)
	if s.action != nil {
		s.action()
	}
}

// Count returns the number of software interrupts handled
func (s *CoreSignals) Count() uint32 {
	return atomic.LoadUint32(&s.count)
}

// Hart returns the owning hart
func (s *CoreSignals) Hart() HartID {
	return s.hart
}
