//go:build tinygo && mpfs

// Command mpfs is the demo firmware for the PolarFire SoC MSS. Every hart
// enters main; each runs the firmware its role selects. Startup code and
// the machine trap vector, which calls hartlinkTrap, come from the board
// support package.
package main

import (
	"context"
	"device/riscv"

	"hartlink/app"
	"hartlink/config"
	"hartlink/core"
)

const (
	causeInterrupt = 1 << 63
	causeSoftware  = 3
	causeExternal  = 11
)

var (
	driver   = &MMUART{}
	hart     *Hart
	plic     *PLIC
	signals  *core.CoreSignals
	channels = make(map[core.ChannelID]*core.Channel)
	bySource = make(map[core.IRQSource]*core.Channel)
)

func main() {
	hart = CurrentHart()
	hart.enableSoftwareWake()
	plic = NewPLIC(hart.ID())
	signals = core.NewCoreSignals(hart.ID(), plic)

	core.SetCycleSource(func() uint64 {
		return uint64(riscv.AsmFull("csrr {}, mcycle", nil))
	})

	cfg := config.DefaultConfig()
	for _, uc := range cfg.UARTs {
		if core.HartID(uc.Hart) != hart.ID() {
			continue
		}
		ch := core.NewChannel(core.ChannelID(uc.Channel), driver, uc.RxBuffer)
		channels[ch.ID] = ch
		bySource[core.IRQSource(uc.Source)] = ch
	}

	firmware, err := app.Build(cfg, func(id core.HartID) app.Env {
		return app.Env{
			Hart:     &Hart{id: id},
			Ctrl:     plic,
			Signals:  signals,
			Notifier: core.NewNotifier(plic),
			Config:   cfg,
			Channel:  func(ch core.ChannelID) *core.Channel { return channels[ch] },
			Source: func(ch core.ChannelID) core.IRQSource {
				uc, _ := cfg.UART(uint8(ch))
				return core.IRQSource(uc.Source)
			},
		}
	})
	if err == nil {
		if fw, ok := firmware[hart.ID()]; ok {
			fw(context.Background())
		}
	}
	for {
		hart.WaitForInterrupt()
	}
}

//export hartlinkTrap
func hartlinkTrap(cause uintptr) {
	if cause&causeInterrupt == 0 {
		return
	}
	switch cause &^ causeInterrupt {
	case causeSoftware:
		signals.OnSignalReceived()
	case causeExternal:
		for src := plic.Claim(); src != 0; src = plic.Claim() {
			if ch := bySource[src]; ch != nil {
				ch.HandleInterrupt()
			}
			plic.Complete(src)
		}
	}
}
