package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"hartlink/config"
	"hartlink/core"
)

// Program is the firmware entry of one hart. Returning ends the hart; a
// hart still waiting when the machine stops is unwound without returning.
type Program func(ctx context.Context) error

// Machine wires harts, UARTs and the interrupt controller described by a
// MachineConfig. Every UART interrupt is routed to one hart, whose channel
// handler runs on that hart's goroutine.
type Machine struct {
	cfg      *config.MachineConfig
	ctrl     *Controller
	bus      *Bus
	notifier *core.Notifier
	shift    time.Duration

	harts    map[core.HartID]*Hart
	signals  map[core.HartID]*core.CoreSignals
	channels map[core.ChannelID]*core.Channel
	sources  map[core.ChannelID]core.IRQSource
}

// NewMachine builds a machine; nothing runs until Run
func NewMachine(cfg *config.MachineConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:      cfg,
		ctrl:     NewController(),
		bus:      NewBus(),
		shift:    time.Duration(cfg.ShiftIntervalUS) * time.Microsecond,
		harts:    make(map[core.HartID]*Hart),
		signals:  make(map[core.HartID]*core.CoreSignals),
		channels: make(map[core.ChannelID]*core.Channel),
		sources:  make(map[core.ChannelID]core.IRQSource),
	}
	if m.shift <= 0 {
		m.shift = time.Millisecond
	}
	m.notifier = core.NewNotifier(m.ctrl)

	for _, hc := range cfg.Harts {
		id := core.HartID(hc.ID)
		h := NewHart(id, m.ctrl)
		sig := core.NewCoreSignals(id, m.ctrl)
		h.SetSoftwareHandler(sig.OnSignalReceived)
		m.harts[id] = h
		m.signals[id] = sig
	}

	for _, uc := range cfg.UARTs {
		id := core.ChannelID(uc.Channel)
		src := core.IRQSource(uc.Source)
		u := NewUART(id, src, m.ctrl, UARTConfig{
			TxDepth:      uc.TxFifo,
			RxDepth:      uc.RxFifo,
			BytesPerTick: uc.BytesPerTick,
		})
		m.bus.Add(u)

		ch := core.NewChannel(id, m.bus, uc.RxBuffer)
		m.channels[id] = ch
		m.sources[id] = src

		hart := core.HartID(uc.Hart)
		m.ctrl.Connect(src, hart, u.Asserted)
		m.harts[hart].Attach(src, ch.HandleInterrupt)
	}

	glog.V(1).Infof("machine: %d harts, %d uarts, shift %v", len(m.harts), len(m.channels), m.shift)
	return m, nil
}

// Run starts every UART shifter and the program of each listed hart, and
// blocks until all programs end, one fails, or ctx is done. Cancellation
// powers the machine off and is not reported as an error.
func (m *Machine) Run(ctx context.Context, programs map[core.HartID]Program) error {
	for id := range programs {
		if _, ok := m.harts[id]; !ok {
			return fmt.Errorf("program for hart %d: no such hart", id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	go func() {
		<-gctx.Done()
		m.ctrl.Stop()
	}()

	for _, id := range m.channelIDs() {
		u, _ := m.bus.UART(id)
		g.Go(func() error {
			u.Run(gctx, m.shift)
			return nil
		})
	}

	for id, prog := range programs {
		id, prog := id, prog
		g.Go(func() error {
			glog.V(1).Infof("hart %d: start", id)
			if err := prog(gctx); err != nil {
				return fmt.Errorf("hart %d: %w", id, err)
			}
			glog.V(1).Infof("hart %d: exit", id)
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop powers the machine off
func (m *Machine) Stop() {
	m.ctrl.Stop()
}

func (m *Machine) channelIDs() []core.ChannelID {
	ids := make([]core.ChannelID, 0, len(m.channels))
	for id := range m.channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Config returns the machine description
func (m *Machine) Config() *config.MachineConfig {
	return m.cfg
}

// Controller returns the interrupt controller
func (m *Machine) Controller() *Controller {
	return m.ctrl
}

// Bus returns the UART driver shared by every channel
func (m *Machine) Bus() *Bus {
	return m.bus
}

// Notifier returns the cross-hart notifier
func (m *Machine) Notifier() *core.Notifier {
	return m.notifier
}

// Hart returns a hart by id
func (m *Machine) Hart(id core.HartID) *Hart {
	return m.harts[id]
}

// Signals returns the software interrupt state of a hart
func (m *Machine) Signals(id core.HartID) *core.CoreSignals {
	return m.signals[id]
}

// Channel returns the transport of a channel
func (m *Machine) Channel(id core.ChannelID) *core.Channel {
	return m.channels[id]
}

// Source returns the interrupt source of a channel
func (m *Machine) Source(id core.ChannelID) core.IRQSource {
	return m.sources[id]
}

// UART returns the simulated device of a channel
func (m *Machine) UART(id core.ChannelID) *UART {
	u, _ := m.bus.UART(id)
	return u
}

// HartIDs returns the configured harts in ascending order
func (m *Machine) HartIDs() []core.HartID {
	ids := make([]core.HartID, 0, len(m.harts))
	for id := range m.harts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
