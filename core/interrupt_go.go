//go:build !tinygo

package core

import "runtime"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go. Hosted harts run their
// handlers on the hart's own goroutine, so channel state is never shared.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state State) {
	// No-op
}

// relax yields inside busy-poll loops so the simulated shifter can drain
func relax() {
	runtime.Gosched()
}
