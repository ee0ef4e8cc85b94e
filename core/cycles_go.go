//go:build !tinygo

package core

import "time"

var bootTime = time.Now()

// defaultCycles derives a cycle count from wall time since process start
func defaultCycles() uint64 {
	return uint64(time.Since(bootTime).Nanoseconds()) * (CycleFreq / 1000000) / 1000
}
