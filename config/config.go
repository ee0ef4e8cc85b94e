// Package config loads the JSON description of a simulated machine.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"hartlink/core"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid machine config")

// Base interrupt source of MMUART0 on the platform interrupt controller
const uartSourceBase = 90

// LoadConfig parses a JSON configuration and returns a validated MachineConfig
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, fmt.Errorf("parse machine config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read machine config: %w", err)
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values with the PolarFire
// SoC demo settings
func applyDefaults(config *MachineConfig) {
	def := DefaultConfig()

	if len(config.Harts) == 0 {
		config.Harts = def.Harts
	}
	if len(config.UARTs) == 0 {
		config.UARTs = def.UARTs
	}
	if config.ShiftIntervalUS == 0 {
		config.ShiftIntervalUS = def.ShiftIntervalUS
	}
	if config.Demo == nil {
		config.Demo = def.Demo
	}

	for i := range config.Harts {
		if config.Harts[i].Role == "" {
			config.Harts[i].Role = RoleIdle
		}
	}

	for i := range config.UARTs {
		u := &config.UARTs[i]
		if u.Baud == 0 {
			u.Baud = core.Baud115200
		}
		if u.DataBits == 0 {
			u.DataBits = 8
		}
		if u.Parity == "" {
			u.Parity = ParityNone
		}
		if u.StopBits == 0 {
			u.StopBits = 1
		}
		if u.RxBuffer == 0 {
			u.RxBuffer = core.DefaultRxBufferSize
		}
		if u.TxFifo == 0 {
			u.TxFifo = 16
		}
		if u.RxFifo == 0 {
			u.RxFifo = 16
		}
		if u.Source == 0 {
			u.Source = uartSourceBase + uint32(u.Channel)
		}
		if u.Priority == 0 {
			u.Priority = 4
		}
		if u.BytesPerTick == 0 {
			u.BytesPerTick = 1
		}
	}
}

// DefaultConfig returns the five-hart PolarFire SoC layout: hart 0 monitors
// and releases harts 1, 2 and 4; hart 2 runs the UART demo on MMUART2 and
// releases hart 3, which prints on MMUART3.
func DefaultConfig() *MachineConfig {
	config := &MachineConfig{
		Harts: []HartConfig{
			{ID: 0, Role: RoleMonitor},
			{ID: 1, Role: RoleIdle, Release: true},
			{ID: 2, Role: RoleUARTDemo, Release: true},
			{ID: 3, Role: RoleReleased},
			{ID: 4, Role: RoleIdle, Release: true},
		},
		PriorityThreshold: 0,
		ShiftIntervalUS:   87, // one byte time at 115200 baud
		Demo: &DemoConfig{
			Hart:         2,
			Channel:      2,
			SignalTarget: 3,
			TargetUART:   3,
		},
	}
	for ch := uint8(0); ch < 5; ch++ {
		config.UARTs = append(config.UARTs, UARTConfig{
			Channel:      ch,
			Hart:         ch,
			Baud:         core.Baud115200,
			DataBits:     8,
			Parity:       ParityNone,
			StopBits:     1,
			RxBuffer:     core.DefaultRxBufferSize,
			TxFifo:       16,
			RxFifo:       16,
			Source:       uartSourceBase + uint32(ch),
			Priority:     4,
			BytesPerTick: 1,
		})
	}
	return config
}

// Validate checks hart references, channel uniqueness and line settings
func (c *MachineConfig) Validate() error {
	harts := make(map[uint8]bool, len(c.Harts))
	monitors := 0
	for _, h := range c.Harts {
		if harts[h.ID] {
			return fmt.Errorf("%w: duplicate hart %d", ErrInvalid, h.ID)
		}
		harts[h.ID] = true
		switch h.Role {
		case RoleMonitor:
			monitors++
			if h.Release {
				return fmt.Errorf("%w: monitor hart %d cannot be released", ErrInvalid, h.ID)
			}
		case RoleUARTDemo, RoleReleased, RoleIdle:
		default:
			return fmt.Errorf("%w: hart %d has unknown role %q", ErrInvalid, h.ID, h.Role)
		}
	}
	if monitors > 1 {
		return fmt.Errorf("%w: %d monitor harts", ErrInvalid, monitors)
	}

	channels := make(map[uint8]bool, len(c.UARTs))
	for _, u := range c.UARTs {
		if u.Channel > uint8(core.PeriphMMUART4) {
			return fmt.Errorf("%w: channel %d out of range", ErrInvalid, u.Channel)
		}
		if channels[u.Channel] {
			return fmt.Errorf("%w: duplicate channel %d", ErrInvalid, u.Channel)
		}
		channels[u.Channel] = true
		if !harts[u.Hart] {
			return fmt.Errorf("%w: channel %d routed to unknown hart %d", ErrInvalid, u.Channel, u.Hart)
		}
		if u.RxBuffer < 0 || u.RxBuffer > 255 {
			return fmt.Errorf("%w: channel %d rx buffer %d", ErrInvalid, u.Channel, u.RxBuffer)
		}
		if u.Priority > 7 {
			return fmt.Errorf("%w: channel %d priority %d", ErrInvalid, u.Channel, u.Priority)
		}
		if _, err := u.Format(); err != nil {
			return fmt.Errorf("%w: channel %d: %v", ErrInvalid, u.Channel, err)
		}
	}
	if c.PriorityThreshold > 7 {
		return fmt.Errorf("%w: priority threshold %d", ErrInvalid, c.PriorityThreshold)
	}

	if d := c.Demo; d != nil {
		if !harts[d.Hart] || !harts[d.SignalTarget] {
			return fmt.Errorf("%w: demo references unknown hart", ErrInvalid)
		}
		if !channels[d.Channel] || !channels[d.TargetUART] {
			return fmt.Errorf("%w: demo references unknown channel", ErrInvalid)
		}
	}
	return nil
}

// Format encodes data bits, parity and stop bits
func (u UARTConfig) Format() (core.FrameFormat, error) {
	var f core.FrameFormat
	switch u.DataBits {
	case 5:
		f = core.Data5Bits
	case 6:
		f = core.Data6Bits
	case 7:
		f = core.Data7Bits
	case 8:
		f = core.Data8Bits
	default:
		return 0, fmt.Errorf("unsupported data bits %d", u.DataBits)
	}
	switch u.Parity {
	case ParityNone:
		f |= core.NoParity
	case ParityOdd:
		f |= core.OddParity
	case ParityEven:
		f |= core.EvenParity
	default:
		return 0, fmt.Errorf("unsupported parity %q", u.Parity)
	}
	switch u.StopBits {
	case 1:
		f |= core.OneStopBit
	case 2:
		f |= core.TwoStopBit
	default:
		return 0, fmt.Errorf("unsupported stop bits %d", u.StopBits)
	}
	return f, nil
}

// Hart returns the configuration of a hart
func (c *MachineConfig) Hart(id uint8) (HartConfig, bool) {
	for _, h := range c.Harts {
		if h.ID == id {
			return h, true
		}
	}
	return HartConfig{}, false
}

// UART returns the configuration of a channel
func (c *MachineConfig) UART(ch uint8) (UARTConfig, bool) {
	for _, u := range c.UARTs {
		if u.Channel == ch {
			return u, true
		}
	}
	return UARTConfig{}, false
}

// Monitor returns the monitor hart, if any
func (c *MachineConfig) Monitor() (HartConfig, bool) {
	for _, h := range c.Harts {
		if h.Role == RoleMonitor {
			return h, true
		}
	}
	return HartConfig{}, false
}

// Releases lists the harts the monitor releases at boot, in order
func (c *MachineConfig) Releases() []uint8 {
	var out []uint8
	for _, h := range c.Harts {
		if h.Release {
			out = append(out, h.ID)
		}
	}
	return out
}

// ChannelConfig returns the line settings applied by core.Channel.Configure
func (u UARTConfig) ChannelConfig() (core.ChannelConfig, error) {
	format, err := u.Format()
	if err != nil {
		return core.ChannelConfig{}, err
	}
	return core.ChannelConfig{
		Baud:   u.Baud,
		Format: format,
		Domain: core.HartID(u.Hart),
	}, nil
}
