package sim

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hartlink/core"
)

// syncBuffer is a line sink shared between the shifter and the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestBus(t *testing.T) (*Bus, *UART) {
	t.Helper()
	ctrl := NewController()
	bus := NewBus()
	u := NewUART(2, 92, ctrl, UARTConfig{TxDepth: 4, RxDepth: 4, BytesPerTick: 2})
	bus.Add(u)
	require.NoError(t, bus.ConfigureClockReset(core.PeriphMMUART2, 2, true))
	require.NoError(t, bus.Init(2, core.Baud115200, core.Format8N1))
	return bus, u
}

func TestBusUnknownChannel(t *testing.T) {
	bus := NewBus()
	require.ErrorIs(t, bus.Init(1, core.Baud115200, core.Format8N1), ErrUnknownChannel)
	require.ErrorIs(t, bus.ConfigureClockReset(core.PeriphMMUART1, 1, true), ErrUnknownChannel)
	require.False(t, bus.FIFOWrite(1, 'x'))
	require.Zero(t, bus.FIFORead(1, make([]byte, 4)))
	require.Zero(t, bus.PendingIRQ(1))
}

func TestUARTInitRequiresClock(t *testing.T) {
	bus := NewBus()
	u := NewUART(1, 91, NewController(), DefaultUARTConfig())
	bus.Add(u)

	require.ErrorIs(t, bus.Init(1, core.Baud115200, core.Format8N1), ErrNotClocked)
	require.False(t, bus.FIFOWrite(1, 'x'))

	require.NoError(t, bus.ConfigureClockReset(core.PeriphMMUART1, 1, true))
	require.Error(t, bus.Init(1, 0, core.Format8N1))
	require.NoError(t, bus.Init(1, core.Baud57600, core.Format8N1))

	baud, format := u.Line()
	require.Equal(t, uint32(core.Baud57600), baud)
	require.Equal(t, core.Format8N1, format)
	require.True(t, u.Clocked())
}

func TestUARTTransmit(t *testing.T) {
	bus, u := newTestBus(t)

	for _, b := range []byte("abcd") {
		require.True(t, bus.FIFOWrite(2, b))
	}
	require.False(t, bus.FIFOWrite(2, 'e'))
	require.False(t, bus.TxHoldingEmpty(2))

	require.Equal(t, 2, u.Tick())
	require.Equal(t, []byte("ab"), u.TakeOutput())
	require.Equal(t, 2, u.Tick())
	require.Equal(t, 0, u.Tick())
	require.Equal(t, []byte("cd"), u.TakeOutput())
	require.True(t, bus.TxComplete(2))
	require.Equal(t, []byte("abcd"), u.Trace())

	line := &syncBuffer{}
	u.Attach(line)
	require.True(t, bus.FIFOWrite(2, 'z'))
	u.Tick()
	require.Equal(t, "z", line.String())
	require.Empty(t, u.TakeOutput())
}

func TestUARTInterruptLevels(t *testing.T) {
	bus, u := newTestBus(t)
	require.False(t, u.Asserted())

	bus.EnableIRQ(2, core.IRQTxEmpty)
	require.Equal(t, core.IRQTxEmpty, bus.PendingIRQ(2))

	bus.FIFOWrite(2, 'x')
	require.Zero(t, bus.PendingIRQ(2))

	bus.EnableIRQ(2, core.IRQRxReady)
	u.Inject([]byte("hi"))
	require.Equal(t, core.IRQRxReady, bus.PendingIRQ(2))
	require.Equal(t, 2, bus.FIFOReadAvailable(2))

	u.Tick()
	require.Equal(t, core.IRQRxReady|core.IRQTxEmpty, bus.PendingIRQ(2))

	bus.DisableIRQ(2, core.IRQTxEmpty)
	buf := make([]byte, 8)
	require.Equal(t, 2, bus.FIFORead(2, buf))
	require.Equal(t, "hi", string(buf[:2]))
	require.False(t, u.Asserted())
}

func TestUARTOverrun(t *testing.T) {
	_, u := newTestBus(t)
	require.Equal(t, 4, u.Inject([]byte("abcdef")))
	require.Equal(t, 2, u.Overruns())
}

func TestUARTFeed(t *testing.T) {
	bus, u := newTestBus(t)
	require.NoError(t, u.Feed(context.Background(), strings.NewReader("ok")))

	buf := make([]byte, 4)
	n := bus.FIFORead(2, buf)
	require.Equal(t, "ok", string(buf[:n]))
}

func TestUARTRunDrains(t *testing.T) {
	bus, u := newTestBus(t)
	line := &syncBuffer{}
	u.Attach(line)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx, time.Millisecond)

	for _, b := range []byte("wxyz") {
		require.True(t, bus.FIFOWrite(2, b))
	}
	require.Eventually(t, func() bool {
		return line.String() == "wxyz"
	}, time.Second, time.Millisecond)
}
