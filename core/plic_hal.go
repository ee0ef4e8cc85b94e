package core

// HartID identifies one hardware thread (core)
type HartID uint8

// IRQSource identifies an external interrupt source at the platform controller
type IRQSource uint32

// Hart is the core-local view of the executing hart.
// Every method must only be called from code running on that hart.
type Hart interface {
	// ID returns the hart number (mhartid)
	ID() HartID

	// SoftwarePending reports whether this hart's software interrupt is pending
	SoftwarePending() bool

	// WaitForInterrupt suspends the hart in a low-power state until a wake
	// event. If interrupts are enabled, pending handlers run before it returns.
	WaitForInterrupt()

	// EnableInterrupts globally enables interrupt delivery on this hart
	EnableInterrupts()
}

// InterruptController is the platform interrupt binding (PLIC + CLINT)
type InterruptController interface {
	// SetPriority assigns a priority level to an external source; 0 never fires
	SetPriority(src IRQSource, level uint32)

	// SetPriorityThreshold masks sources whose priority is not above level
	SetPriorityThreshold(level uint32)

	// EnableSource routes an external source to its hart
	EnableSource(src IRQSource)

	// DisableSource masks an external source
	DisableSource(src IRQSource)

	// RaiseSoftwareInterrupt sets the software interrupt pending bit of a hart
	RaiseSoftwareInterrupt(h HartID)

	// ClearSoftwareInterrupt clears the software interrupt pending bit of a hart
	ClearSoftwareInterrupt(h HartID)
}
