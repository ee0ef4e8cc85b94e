// Package sim runs the transport on a hosted machine model: a platform
// interrupt controller, harts as goroutines and UARTs with small FIFOs.
package sim

import (
	"sort"
	"sync"

	"github.com/golang/glog"

	"hartlink/core"
)

// source is one external interrupt line routed to a single hart
type source struct {
	hart     core.HartID
	priority uint32
	enabled  bool
	level    func() bool // asserted by the device
}

// Controller models the PLIC (external sources) and the CLINT software
// interrupt bits of every hart. Sources are level-triggered.
type Controller struct {
	mu        sync.Mutex
	cond      *sync.Cond
	sources   map[core.IRQSource]*source
	threshold uint32
	msip      map[core.HartID]bool
	raised    map[core.HartID]uint64
	stopped   bool
}

var _ core.InterruptController = (*Controller)(nil)

// NewController creates a controller with every source masked
func NewController() *Controller {
	c := &Controller{
		sources: make(map[core.IRQSource]*source),
		msip:    make(map[core.HartID]bool),
		raised:  make(map[core.HartID]uint64),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Connect routes a device line to a hart. level reports the line state and
// is called with the controller lock held; it must not call back into it.
func (c *Controller) Connect(src core.IRQSource, hart core.HartID, level func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[src] = &source{hart: hart, level: level}
}

func (c *Controller) lookup(src core.IRQSource) *source {
	s, ok := c.sources[src]
	if !ok {
		s = &source{}
		c.sources[src] = s
	}
	return s
}

// SetPriority implements core.InterruptController
func (c *Controller) SetPriority(src core.IRQSource, level uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup(src).priority = level & 7
	c.cond.Broadcast()
}

// SetPriorityThreshold implements core.InterruptController
func (c *Controller) SetPriorityThreshold(level uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = level & 7
	c.cond.Broadcast()
}

// EnableSource implements core.InterruptController
func (c *Controller) EnableSource(src core.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup(src).enabled = true
	c.cond.Broadcast()
}

// DisableSource implements core.InterruptController
func (c *Controller) DisableSource(src core.IRQSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup(src).enabled = false
}

// RaiseSoftwareInterrupt implements core.InterruptController
func (c *Controller) RaiseSoftwareInterrupt(h core.HartID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msip[h] = true
	c.raised[h]++
	glog.V(2).Infof("msip hart %d raised (%d)", h, c.raised[h])
	c.cond.Broadcast()
}

// ClearSoftwareInterrupt implements core.InterruptController
func (c *Controller) ClearSoftwareInterrupt(h core.HartID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msip[h] = false
}

// SoftwarePending reports the software interrupt bit of a hart
func (c *Controller) SoftwarePending(h core.HartID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msip[h]
}

// Raised returns how many software interrupts were raised on a hart
func (c *Controller) Raised(h core.HartID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raised[h]
}

// Notify wakes waiting harts so they re-evaluate device lines.
// Devices call it after a line may have become asserted.
func (c *Controller) Notify() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Stop powers the machine off; waiting harts are unwound
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.cond.Broadcast()
}

// Stopped reports whether Stop has been called
func (c *Controller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// wait blocks until hart h has a wake condition. Without external only the
// software interrupt wakes the hart. ok is false once the machine stopped.
func (c *Controller) wait(h core.HartID, external bool) (sw bool, srcs []core.IRQSource, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.stopped {
			return false, nil, false
		}
		sw = c.msip[h]
		if external {
			srcs = c.deliverable(h)
		}
		if sw || len(srcs) > 0 {
			return sw, srcs, true
		}
		c.cond.Wait()
	}
}

// deliverable lists asserted sources of hart h above the threshold,
// highest priority first. Must be called with the lock held.
func (c *Controller) deliverable(h core.HartID) []core.IRQSource {
	var out []core.IRQSource
	for id, s := range c.sources {
		if s.hart != h || !s.enabled || s.priority <= c.threshold || s.level == nil {
			continue
		}
		if s.level() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := c.sources[out[i]].priority, c.sources[out[j]].priority
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}
