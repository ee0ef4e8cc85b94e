package core

import "sync"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures an interrupt-path event for post-mortem analysis
type Event struct {
	EventType uint8  // Event type code
	ID        uint8  // Channel or hart number
	Cycle     uint64 // Cycle counter at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtRxIRQ      = 1 // RX interrupt stored a payload (v1=irq count, v2=bytes)
	EvtTxIRQ      = 2 // TX continuation ran (v1=index, v2=total)
	EvtTxComplete = 3 // Async transfer reached its end
	EvtSignalSent = 4 // Software interrupt raised (id=target hart)
	EvtSignalRecv = 5 // Software interrupt handled (id=receiving hart)
	EvtRelease    = 6 // Boot barrier released
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventMu      sync.Mutex
	eventRing    [EventRingSize]Event
	eventHead    uint8
	eventEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetEventsEnabled turns event capture on or off
func SetEventsEnabled(enabled bool) {
	eventEnabled = enabled
}

// RecordEvent captures an event in the ring buffer. Safe from handlers.
func RecordEvent(eventType, id uint8, value1, value2 uint32) {
	if !eventEnabled {
		return
	}
	cycle := ReadCycles()

	state := disableInterrupts()
	eventMu.Lock()
	idx := eventHead
	eventRing[idx] = Event{
		EventType: eventType,
		ID:        id,
		Cycle:     cycle,
		Value1:    value1,
		Value2:    value2,
	}
	eventHead = (idx + 1) % EventRingSize
	eventMu.Unlock()
	restoreInterrupts(state)
}

// Events returns the recorded events, oldest first
func Events() []Event {
	state := disableInterrupts()
	eventMu.Lock()
	defer func() {
		eventMu.Unlock()
		restoreInterrupts(state)
	}()

	events := make([]Event, 0, EventRingSize)
	start := eventHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the printable name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtRxIRQ:
		return "RX_IRQ"
	case EvtTxIRQ:
		return "TX_IRQ"
	case EvtTxComplete:
		return "TX_DONE"
	case EvtSignalSent:
		return "SIG_SENT"
	case EvtSignalRecv:
		return "SIG_RECV"
	case EvtRelease:
		return "RELEASE"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing writes the event ring through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENT] " + EventName(evt.EventType) +
			" id=" + utoa(uint32(evt.ID)) +
			" cycle=" + FormatUint(evt.Cycle) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	state := disableInterrupts()
	eventMu.Lock()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventHead = 0
	eventMu.Unlock()
	restoreInterrupts(state)
}
