// Package serial connects a simulated UART to a real line: a serial device
// through github.com/tarm/serial, or the process terminal.
package serial

import (
	"io"
)

// Port represents a serial line attached to a simulated UART.
// Implementations:
// - Native serial (using github.com/tarm/serial)
// - Stdio (the controlling terminal or a pipe)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the attached line
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns 115200 baud with blocking reads, the MMUART
// console settings
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0,
	}
}
