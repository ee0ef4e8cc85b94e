package app

import (
	"context"

	"hartlink/core"
)

// UARTDemo is the interactive demo: each received payload is dispatched on
// its first byte, '0'..'4' select a behaviour and anything else is echoed.
type UARTDemo struct {
	env    Env
	chID   core.ChannelID
	ch     *core.Channel
	table  *CommandTable
	signal *core.SignalOnComplete
	start  uint64

	menu      []byte
	signalMsg []byte
}

// NewUARTDemo prepares the demo for the hart of env
func NewUARTDemo(env Env) (*UARTDemo, error) {
	d := &UARTDemo{
		env:   env,
		table: NewCommandTable(),
		menu:  []byte(Menu(env.Hart.ID())),
	}

	target, targetUART := core.HartID(0), core.ChannelID(0)
	if demo := env.Config.Demo; demo != nil {
		d.chID = core.ChannelID(demo.Channel)
		target = core.HartID(demo.SignalTarget)
		targetUART = core.ChannelID(demo.TargetUART)
	} else {
		d.chID = core.ChannelID(env.Hart.ID())
	}
	// One handler value for the life of the demo, so the target hart is
	// signalled by the first completed transfer only
	d.signal = core.NewSignalOnComplete(env.Notifier, target)
	d.signalMsg = []byte(SignalMessage(target, targetUART))

	d.table.Register('0', "cycles", d.showCycles)
	d.table.Register('1', "menu", d.showMenu)
	d.table.Register('2', "polled", d.sendPolled)
	d.table.Register('3', "interrupt", d.sendInterrupt)
	d.table.Register('4', "tx handler", d.sendWithHandler)
	d.table.SetFallback(d.echo)
	return d, nil
}

// Run boots the hart and serves commands until ctx is done
func (d *UARTDemo) Run(ctx context.Context) error {
	if err := d.Boot(); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Boot waits for the release, brings the channel up, sends the banner
// polled and the menu by interrupt, and waits for the menu to go out
func (d *UARTDemo) Boot() error {
	d.env.boot()

	ch, err := d.env.openChannel(d.chID)
	if err != nil {
		return err
	}
	d.ch = ch
	ch.SetRxHandler(d.onReceive)
	ch.EnableRx()

	if err := ch.WriteBlocking([]byte(Banner)); err != nil {
		return err
	}
	if err := ch.WriteAsync(d.menu, nil); err != nil {
		return err
	}
	d.env.drain(ch)

	d.start = core.ReadCycles()
	core.DebugPrintln("[DEMO] hart " + core.FormatUint(uint64(d.env.Hart.ID())) + " ready")
	return nil
}

// Step handles a pending payload, or waits for one wake when there is none.
// A payload stored while the hart waited for a transfer is served first.
func (d *UARTDemo) Step() error {
	if payload, ok := d.ch.PollReceived(); ok {
		return d.table.Dispatch(payload)
	}
	d.env.Hart.WaitForInterrupt()
	return nil
}

// Channel returns the demo channel once booted
func (d *UARTDemo) Channel() *core.Channel {
	return d.ch
}

// Commands returns the command table
func (d *UARTDemo) Commands() *CommandTable {
	return d.table
}

// SignalHandler returns the transmit handler installed by command '4'
func (d *UARTDemo) SignalHandler() *core.SignalOnComplete {
	return d.signal
}

func (d *UARTDemo) onReceive(c *core.Channel, count uint32) {
	// Acknowledge from interrupt context with the polled method
	c.WriteBlocking([]byte(RxAck(c.ID, count)))
}

// writeAsync waits for the previous transfer before issuing the next
func (d *UARTDemo) writeAsync(p []byte) error {
	d.env.drain(d.ch)
	return d.ch.WriteAsync(p, nil)
}

func (d *UARTDemo) showCycles(_ []byte) error {
	delta := core.ReadCycles() - d.start
	return d.ch.WriteBlocking([]byte(CycleReport(d.env.Hart.ID(), delta)))
}

func (d *UARTDemo) showMenu(_ []byte) error {
	return d.writeAsync(d.menu)
}

func (d *UARTDemo) sendPolled(_ []byte) error {
	return d.ch.WriteBlocking([]byte(PolledMessage))
}

func (d *UARTDemo) sendInterrupt(_ []byte) error {
	return d.writeAsync([]byte(IntrMessage))
}

// sendWithHandler installs the signalling handler, then triggers the
// transmit interrupt. The handler stays installed for later transfers.
func (d *UARTDemo) sendWithHandler(_ []byte) error {
	d.env.drain(d.ch)
	d.ch.SetTxHandler(d.signal)
	return d.ch.WriteAsync(d.signalMsg, nil)
}

func (d *UARTDemo) echo(payload []byte) error {
	return d.ch.WriteBlocking(payload)
}
