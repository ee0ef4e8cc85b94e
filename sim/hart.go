package sim

import (
	"runtime"
	"sync"
	"sync/atomic"

	"hartlink/core"
)

// Hart is a simulated hart. Its program runs on one goroutine and its
// interrupt handlers run on that same goroutine inside WaitForInterrupt,
// so handlers never race the main loop.
type Hart struct {
	id    core.HartID
	ctrl  *Controller
	irqOn atomic.Bool
	wakes atomic.Uint64

	mu        sync.Mutex
	handlers  map[core.IRQSource]func()
	swHandler func()
}

var _ core.Hart = (*Hart)(nil)

// NewHart creates a hart with interrupts globally disabled
func NewHart(id core.HartID, ctrl *Controller) *Hart {
	return &Hart{
		id:       id,
		ctrl:     ctrl,
		handlers: make(map[core.IRQSource]func()),
	}
}

// ID implements core.Hart
func (h *Hart) ID() core.HartID {
	return h.id
}

// SoftwarePending implements core.Hart
func (h *Hart) SoftwarePending() bool {
	return h.ctrl.SoftwarePending(h.id)
}

// EnableInterrupts implements core.Hart
func (h *Hart) EnableInterrupts() {
	h.irqOn.Store(true)
	h.ctrl.Notify()
}

// InterruptsEnabled reports the global interrupt enable
func (h *Hart) InterruptsEnabled() bool {
	return h.irqOn.Load()
}

// Attach installs the handler of an external source routed to this hart
func (h *Hart) Attach(src core.IRQSource, handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[src] = handler
}

// SetSoftwareHandler installs the software interrupt handler. The handler
// must clear the pending bit, or the hart wakes again immediately.
func (h *Hart) SetSoftwareHandler(handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.swHandler = handler
}

// WaitForInterrupt implements core.Hart. With interrupts disabled only the
// software interrupt wakes the hart and no handler runs (wfi with
// mstatus.MIE clear). Once the machine is stopped the calling goroutine is
// unwound.
func (h *Hart) WaitForInterrupt() {
	enabled := h.irqOn.Load()
	sw, srcs, ok := h.ctrl.wait(h.id, enabled)
	if !ok {
		runtime.Goexit()
	}
	h.wakes.Add(1)
	if !enabled {
		return
	}

	h.mu.Lock()
	swHandler := h.swHandler
	handlers := make([]func(), 0, len(srcs))
	for _, src := range srcs {
		if fn := h.handlers[src]; fn != nil {
			handlers = append(handlers, fn)
		}
	}
	h.mu.Unlock()

	if sw && swHandler != nil {
		swHandler()
	}
	for _, fn := range handlers {
		fn()
	}
}

// Wakes returns how many times the hart left its wait state
func (h *Hart) Wakes() uint64 {
	return h.wakes.Load()
}
