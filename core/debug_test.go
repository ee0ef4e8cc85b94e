package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventRingOrderAndWrap(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	for i := uint32(1); i <= EventRingSize+4; i++ {
		RecordEvent(EvtTxIRQ, 2, i, 0)
	}

	events := Events()
	require.Len(t, events, EventRingSize)
	require.Equal(t, uint32(5), events[0].Value1, "oldest surviving event first")
	require.Equal(t, uint32(EventRingSize+4), events[len(events)-1].Value1)
}

func TestTransportRecordsEvents(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	ch, drv := newConfiguredChannel(16)
	drv.rx = []byte("0")
	ch.HandleRx()
	require.NoError(t, ch.WriteAsync([]byte("ok"), nil))
	ch.ContinueTx()

	var names []string
	for _, evt := range Events() {
		names = append(names, EventName(evt.EventType))
	}
	require.Equal(t, []string{"RX_IRQ", "TX_IRQ", "TX_DONE"}, names)
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordEvent(EvtRelease, 3, 1, 0)
	DumpEventRing()

	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "[EVENT] RELEASE id=3"), lines[1])
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")
	SetDebugEnabled(false)

	require.Equal(t, []string{"shown"}, lines)
}
