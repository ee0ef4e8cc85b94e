package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"hartlink/app"
	"hartlink/config"
	"hartlink/core"
	"hartlink/sim"
)

// session is one simulated machine running the demo firmware
type session struct {
	cfg      *config.MachineConfig
	m        *sim.Machine
	programs map[core.HartID]sim.Program

	mu   sync.Mutex
	errc chan error
}

func loadConfig() (*config.MachineConfig, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadFile(configPath)
}

func newSession(cfg *config.MachineConfig) (*session, error) {
	core.SetDebugWriter(func(s string) { glog.Info(s) })
	core.SetDebugEnabled(coreDebug)

	m, err := sim.NewMachine(cfg)
	if err != nil {
		return nil, err
	}

	firmware, err := app.Build(cfg, func(id core.HartID) app.Env {
		return app.Env{
			Hart:     m.Hart(id),
			Ctrl:     m.Controller(),
			Signals:  m.Signals(id),
			Notifier: m.Notifier(),
			Config:   cfg,
			Channel:  m.Channel,
			Source:   m.Source,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("build firmware: %w", err)
	}

	programs := make(map[core.HartID]sim.Program, len(firmware))
	for id, fw := range firmware {
		programs[id] = sim.Program(fw)
	}
	return &session{cfg: cfg, m: m, programs: programs}, nil
}

// start runs the machine in the background
func (s *session) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errc = make(chan error, 1)
	go func() {
		s.errc <- s.m.Run(ctx, s.programs)
	}()
	glog.Infof("machine started: %d harts", len(s.programs))
}

// wait blocks until the machine stops
func (s *session) wait() error {
	s.mu.Lock()
	errc := s.errc
	s.mu.Unlock()
	return <-errc
}

// demoChannel is the UART the demo hart serves
func (s *session) demoChannel() core.ChannelID {
	if d := s.cfg.Demo; d != nil {
		return core.ChannelID(d.Channel)
	}
	return 0
}
