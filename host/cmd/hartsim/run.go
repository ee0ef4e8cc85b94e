package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"hartlink/core"
	"hartlink/host/serial"
)

var (
	runOpts = struct {
		device string
		baud   int
		stdio  bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the demo with the demo UART attached to a line",
		Long:  "Run the demo firmware until interrupted. The demo UART is attached to a serial device (--device) or to this terminal (--stdio); other UARTs are logged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := newSession(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			for _, hc := range cfg.UARTs {
				id := core.ChannelID(hc.Channel)
				s.m.UART(id).Attach(&lineLogger{ch: id})
			}

			port, err := openLine()
			if err != nil {
				return err
			}
			if port != nil {
				defer port.Close()
				demo := s.m.UART(s.demoChannel())
				demo.Attach(port)
				go func() {
					if err := demo.Feed(ctx, port); err != nil && ctx.Err() == nil {
						glog.Warningf("line closed: %v", err)
					}
				}()
			}

			s.start(ctx)
			return s.wait()
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runOpts.device, "device", "d", "", "Serial device for the demo UART (e.g. /dev/ttyUSB0)")
	runCmd.Flags().IntVarP(&runOpts.baud, "baud", "b", core.Baud115200, "Serial device baud rate")
	runCmd.Flags().BoolVar(&runOpts.stdio, "stdio", true, "Attach the demo UART to this terminal when no device is given")
}

func openLine() (serial.Port, error) {
	if runOpts.device != "" {
		cfg := serial.DefaultConfig(runOpts.device)
		cfg.Baud = runOpts.baud
		return serial.Open(cfg)
	}
	if runOpts.stdio {
		return serial.NewStdioPort(os.Stdin, os.Stdout), nil
	}
	return nil, nil
}

// lineLogger logs the output of a UART that has no line attached, one
// line of text at a time
type lineLogger struct {
	ch  core.ChannelID
	buf []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\r':
		case '\n':
			glog.Infof("uart%d: %s", l.ch, l.buf)
			l.buf = l.buf[:0]
		default:
			l.buf = append(l.buf, b)
		}
	}
	return len(p), nil
}
