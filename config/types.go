package config

// Hart roles
const (
	RoleMonitor  = "monitor"   // releases the other harts at boot
	RoleUARTDemo = "uart_demo" // runs the interactive UART demo
	RoleReleased = "released"  // waits for a release raised by another hart
	RoleIdle     = "idle"      // counts software interrupts, nothing else
)

// Parity names accepted in UARTConfig
const (
	ParityNone = "none"
	ParityOdd  = "odd"
	ParityEven = "even"
)

// HartConfig describes one hart
type HartConfig struct {
	ID      uint8  `json:"id"`
	Role    string `json:"role"`
	Release bool   `json:"release"` // released by the monitor hart at boot
}

// UARTConfig describes one UART channel and its interrupt routing
type UARTConfig struct {
	Channel      uint8  `json:"channel"`
	Hart         uint8  `json:"hart"`      // hart the interrupt is routed to
	Baud         uint32 `json:"baud"`
	DataBits     int    `json:"data_bits"` // 5..8
	Parity       string `json:"parity"`
	StopBits     int    `json:"stop_bits"` // 1 or 2
	RxBuffer     int    `json:"rx_buffer"` // bytes kept per receive interrupt
	TxFifo       int    `json:"tx_fifo"`
	RxFifo       int    `json:"rx_fifo"`
	Source       uint32 `json:"source"`   // platform interrupt source
	Priority     uint32 `json:"priority"` // 1..7
	BytesPerTick int    `json:"bytes_per_tick"`
}

// DemoConfig selects the harts and channel of the UART demo
type DemoConfig struct {
	Hart         uint8 `json:"hart"`
	Channel      uint8 `json:"channel"`
	SignalTarget uint8 `json:"signal_target"` // hart released by command '4'
	TargetUART   uint8 `json:"target_uart"`   // channel the released hart prints on
}

// MachineConfig is the complete description of a simulated machine
type MachineConfig struct {
	Harts             []HartConfig `json:"harts"`
	UARTs             []UARTConfig `json:"uarts"`
	PriorityThreshold uint32       `json:"priority_threshold"`
	ShiftIntervalUS   int          `json:"shift_interval_us"` // UART shifter period
	Demo              *DemoConfig  `json:"demo,omitempty"`
}
