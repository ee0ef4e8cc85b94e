//go:build tinygo

package core

import "sync/atomic"

var cycleTicks uint64

// defaultCycles returns the software tick count until a target installs
// a hardware counter with SetCycleSource
func defaultCycles() uint64 {
	return atomic.LoadUint64(&cycleTicks)
}

// AdvanceCycles adds ticks to the software counter
func AdvanceCycles(n uint64) {
	atomic.AddUint64(&cycleTicks, n)
}
