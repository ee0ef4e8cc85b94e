// Package app is the demo firmware run on each hart: a monitor hart that
// releases the others at boot, a UART demo hart driven by single-byte
// commands, a hart released by the demo's transmit handler, and idle harts.
package app

import (
	"context"
	"errors"
	"runtime"

	"hartlink/config"
	"hartlink/core"
)

// ErrMissingChannel is returned when a hart needs a channel the platform lacks
var ErrMissingChannel = errors.New("channel not available")

// Env is what a hart program sees of its platform
type Env struct {
	Hart     core.Hart
	Ctrl     core.InterruptController
	Signals  *core.CoreSignals
	Notifier *core.Notifier
	Config   *config.MachineConfig

	// Channel returns the transport of a channel routed to this hart, or nil
	Channel func(core.ChannelID) *core.Channel
	// Source returns the interrupt source of a channel
	Source func(core.ChannelID) core.IRQSource
}

// Firmware is the entry point of one hart
type Firmware func(ctx context.Context) error

// Build returns the firmware of every configured hart
func Build(cfg *config.MachineConfig, envFor func(core.HartID) Env) (map[core.HartID]Firmware, error) {
	out := make(map[core.HartID]Firmware, len(cfg.Harts))
	for _, hc := range cfg.Harts {
		env := envFor(core.HartID(hc.ID))
		switch hc.Role {
		case config.RoleMonitor:
			out[env.Hart.ID()] = NewMonitor(env).Run
		case config.RoleUARTDemo:
			demo, err := NewUARTDemo(env)
			if err != nil {
				return nil, err
			}
			out[env.Hart.ID()] = demo.Run
		case config.RoleReleased:
			out[env.Hart.ID()] = NewReleased(env).Run
		default:
			out[env.Hart.ID()] = NewIdle(env).Run
		}
	}
	return out, nil
}

// released reports whether another hart releases this one at boot
func (e Env) released() bool {
	id := uint8(e.Hart.ID())
	if hc, ok := e.Config.Hart(id); ok && hc.Release {
		return true
	}
	if d := e.Config.Demo; d != nil && d.SignalTarget == id {
		return true
	}
	return false
}

// boot holds the hart in its barrier when it is released by another hart,
// then enables interrupts
func (e Env) boot() {
	if e.released() {
		core.NewBootBarrier(e.Hart, e.Ctrl).Wait()
	}
	e.Hart.EnableInterrupts()
}

// openChannel configures a channel and routes its interrupt source
func (e Env) openChannel(id core.ChannelID) (*core.Channel, error) {
	uc, ok := e.Config.UART(uint8(id))
	if !ok || e.Channel == nil {
		return nil, ErrMissingChannel
	}
	ch := e.Channel(id)
	if ch == nil {
		return nil, ErrMissingChannel
	}
	cc, err := uc.ChannelConfig()
	if err != nil {
		return nil, err
	}
	if err := ch.Configure(cc); err != nil {
		return nil, err
	}

	src := e.Source(id)
	e.Ctrl.SetPriority(src, uc.Priority)
	e.Ctrl.SetPriorityThreshold(e.Config.PriorityThreshold)
	e.Ctrl.EnableSource(src)
	return ch, nil
}

// idle parks the hart until ctx is done. Interrupt handlers run on wake.
func (e Env) idle(ctx context.Context) error {
	for ctx.Err() == nil {
		e.Hart.WaitForInterrupt()
	}
	return nil
}

// drain waits until the async payload of ch is handed to the FIFO and the
// line has gone idle
func (e Env) drain(ch *core.Channel) {
	for !ch.TxDone() {
		e.Hart.WaitForInterrupt()
	}
	for !ch.TxComplete() {
		runtime.Gosched()
	}
}
