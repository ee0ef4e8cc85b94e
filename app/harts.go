package app

import (
	"context"

	"hartlink/core"
)

// Monitor releases the harts listed in the configuration, reports on its
// own channel when it has one, and then idles
type Monitor struct {
	env Env
}

// NewMonitor creates the monitor firmware
func NewMonitor(env Env) *Monitor {
	return &Monitor{env: env}
}

// Run releases every configured hart, in order
func (m *Monitor) Run(ctx context.Context) error {
	var released []core.HartID
	for _, id := range m.env.Config.Releases() {
		h := core.HartID(id)
		m.env.Notifier.Signal(h)
		released = append(released, h)
	}
	m.env.Hart.EnableInterrupts()

	if ch, err := m.env.openChannel(core.ChannelID(m.env.Hart.ID())); err == nil {
		if err := ch.WriteBlocking([]byte(MonitorMessage(m.env.Hart.ID(), released))); err != nil {
			return err
		}
	}
	return m.env.idle(ctx)
}

// Released waits in its boot barrier until another hart signals it, then
// announces itself on its own channel and idles
type Released struct {
	env Env
}

// NewReleased creates the firmware of a hart released at run time
func NewReleased(env Env) *Released {
	return &Released{env: env}
}

// Run blocks in the boot barrier until released
func (r *Released) Run(ctx context.Context) error {
	r.env.boot()

	chID := core.ChannelID(r.env.Hart.ID())
	if d := r.env.Config.Demo; d != nil && core.HartID(d.SignalTarget) == r.env.Hart.ID() {
		chID = core.ChannelID(d.TargetUART)
	}
	ch, err := r.env.openChannel(chID)
	if err != nil {
		return err
	}
	if _, err := core.NewStream(ch).Write([]byte(ReleasedMessage(r.env.Hart.ID()))); err != nil {
		return err
	}
	return r.env.idle(ctx)
}

// Idle waits for its release and then only counts software interrupts
type Idle struct {
	env Env
}

// NewIdle creates idle firmware
func NewIdle(env Env) *Idle {
	return &Idle{env: env}
}

// Run parks the hart. Each software interrupt after boot is reported on
// the debug writer with the running count.
func (i *Idle) Run(ctx context.Context) error {
	if sig := i.env.Signals; sig != nil {
		prefix := "[HART] hart " + core.FormatUint(uint64(sig.Hart())) + " signals="
		sig.SetAction(func() {
			core.DebugPrintln(prefix + core.FormatUint(uint64(sig.Count())))
		})
	}
	i.env.boot()
	return i.env.idle(ctx)
}
