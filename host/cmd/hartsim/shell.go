package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"

	"hartlink/core"
)

const sessionKey = "$session"

var (
	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Run the demo under an interactive shell",
		Long:  "Run the demo firmware and drive the demo UART from an interactive shell. UART output is collected until shown with 'out'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := newSession(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			s.start(ctx)

			sh := ishell.New()
			sh.Set(sessionKey, s)
			sh.SetPrompt("hartsim > ")
			for _, c := range shellCmds {
				sh.AddCmd(c)
			}
			sh.Println("Type 'send 1' for the demo menu, 'help' for commands.")
			sh.Run()

			cancel()
			return s.wait()
		},
	}

	shellCmds = []*ishell.Cmd{
		&sendCmd,
		&outCmd,
		&traceCmd,
		&statusCmd,
		&releaseCmd,
		&eventsCmd,
	}

	sendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TEXT - deliver TEXT to the demo UART as one receive burst",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			s := sessionFrom(c)
			u := s.m.UART(s.demoChannel())
			text := []byte(strings.Join(c.Args, " "))
			if n := u.Inject(text); n < len(text) {
				c.Printf("%d of %d bytes lost to overrun\n", len(text)-n, len(text))
			}
		},
	}

	outCmd = ishell.Cmd{
		Name:    "out",
		Aliases: []string{"o"},
		Help:    "[CHANNEL] - print and clear the output of a UART (default: demo UART)",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			ch, ok := channelArg(c, s)
			if !ok {
				return
			}
			out := s.m.UART(ch).TakeOutput()
			c.Print(strings.ReplaceAll(string(out), "\r\n", "\n"))
		},
	}

	traceCmd = ishell.Cmd{
		Name: "trace",
		Help: "[CHANNEL] - print every byte the TX FIFO of a UART has accepted",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			ch, ok := channelArg(c, s)
			if !ok {
				return
			}
			trace := s.m.UART(ch).Trace()
			c.Printf("uart%d: %d bytes\n%q\n", ch, len(trace), trace)
		},
	}

	statusCmd = ishell.Cmd{
		Name: "status",
		Help: "show hart and channel counters",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			ctrl := s.m.Controller()
			for _, id := range s.m.HartIDs() {
				h := s.m.Hart(id)
				c.Printf("hart %d: wakes=%d irq=%t msip=%t raised=%d signals=%d\n",
					id, h.Wakes(), h.InterruptsEnabled(), h.SoftwarePending(),
					ctrl.Raised(id), s.m.Signals(id).Count())
			}
			for _, uc := range s.cfg.UARTs {
				id := core.ChannelID(uc.Channel)
				ch := s.m.Channel(id)
				idx, total := ch.TxProgress()
				c.Printf("uart%d: hart=%d configured=%t rx_irqs=%d pending=%d tx=%d/%d overruns=%d\n",
					id, uc.Hart, ch.Configured(), ch.RxInterrupts(), ch.Pending(),
					idx, total, s.m.UART(id).Overruns())
			}
		},
	}

	releaseCmd = ishell.Cmd{
		Name: "release",
		Help: "HART - raise a software interrupt on HART",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HART required"))
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(fmt.Errorf("Invalid HART: %v", err))
				return
			}
			s := sessionFrom(c)
			if s.m.Hart(core.HartID(id)) == nil {
				c.Err(fmt.Errorf("no hart %d", id))
				return
			}
			s.m.Notifier().Signal(core.HartID(id))
		},
	}

	eventsCmd = ishell.Cmd{
		Name: "events",
		Help: "dump the transport event ring",
		Func: func(c *ishell.Context) {
			for _, e := range core.Events() {
				c.Printf("%12d %-12s id=%d v1=%d v2=%d\n",
					e.Cycle, core.EventName(e.EventType), e.ID, e.Value1, e.Value2)
			}
		},
	}
)

func sessionFrom(c *ishell.Context) *session {
	return c.Get(sessionKey).(*session)
}

func channelArg(c *ishell.Context, s *session) (core.ChannelID, bool) {
	if len(c.Args) == 0 {
		return s.demoChannel(), true
	}
	n, err := strconv.ParseUint(c.Args[0], 10, 8)
	if err != nil {
		c.Err(fmt.Errorf("Invalid CHANNEL: %v", err))
		return 0, false
	}
	ch := core.ChannelID(n)
	if s.m.UART(ch) == nil {
		c.Err(fmt.Errorf("no uart %d", ch))
		return 0, false
	}
	return ch, true
}
