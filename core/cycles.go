package core

// CycleFreq is the U54 core clock used to convert cycle deltas
const CycleFreq = 600000000 // 600MHz

// cycleSource, when set by a target, replaces the default counter
var cycleSource func() uint64

// SetCycleSource installs the platform cycle counter (mcycle on RISC-V)
func SetCycleSource(src func() uint64) {
	cycleSource = src
}

// ReadCycles returns the current cycle counter of the calling hart
func ReadCycles() uint64 {
	if src := cycleSource; src != nil {
		return src()
	}
	return defaultCycles()
}

// CyclesToUS converts a cycle delta to microseconds
func CyclesToUS(cycles uint64) uint64 {
	return cycles / (CycleFreq / 1000000)
}
