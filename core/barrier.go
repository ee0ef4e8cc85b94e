package core

import "sync/atomic"

// BootBarrier holds a hart in a low-power wait until another hart raises
// its software interrupt. There is no timeout: a secondary hart has no
// work until the primary releases it.
type BootBarrier struct {
	hart     Hart
	ctrl     InterruptController
	releases uint32 // atomic
}

// NewBootBarrier creates the barrier of the calling hart
func NewBootBarrier(h Hart, ctrl InterruptController) *BootBarrier {
	return &BootBarrier{hart: h, ctrl: ctrl}
}

// Wait blocks until the hart's software interrupt is pending, then clears
// it once and returns. A release raised before Wait is entered is kept.
func (b *BootBarrier) Wait() {
	for !b.hart.SoftwarePending() {
		b.hart.WaitForInterrupt()
	}
	b.ctrl.ClearSoftwareInterrupt(b.hart.ID())

	count := atomic.AddUint32(&b.releases, 1)
	RecordEvent(EvtRelease, uint8(b.hart.ID()), count, 0)
	DebugPrintln("[BOOT] hart " + utoa(uint32(b.hart.ID())) + " released")
}

// Releases returns how many times Wait has returned
func (b *BootBarrier) Releases() uint32 {
	return atomic.LoadUint32(&b.releases)
}
