package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureIdempotent(t *testing.T) {
	drv := newMockUART()
	ch := NewChannel(2, drv, 16)
	require.False(t, ch.Configured())

	cfg := DefaultChannelConfig(2)
	require.NoError(t, ch.Configure(cfg))
	require.NoError(t, ch.Configure(cfg))
	require.Equal(t, 1, drv.inits, "same settings must not re-init the line")
	require.Equal(t, HartID(2), drv.clockOn[PeriphMMUART2])
	require.Equal(t, uint32(Baud115200), drv.baud)
	require.Equal(t, Format8N1, drv.format)

	cfg.Baud = Baud57600
	require.NoError(t, ch.Configure(cfg))
	require.Equal(t, 2, drv.inits)
	require.Equal(t, uint32(Baud57600), ch.Config().Baud)
}

func TestConfigureClockError(t *testing.T) {
	drv := newMockUART()
	drv.clockErr = errors.New("reset stuck")
	ch := NewChannel(1, drv, 16)

	err := ch.Configure(DefaultChannelConfig(1))
	require.ErrorIs(t, err, drv.clockErr)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, ChannelID(1), cerr.Channel)
	require.Equal(t, "uart 1 clock: reset stuck", err.Error())
	require.False(t, ch.Configured())
}

func TestWriteBeforeConfigure(t *testing.T) {
	ch := NewChannel(0, newMockUART(), 16)
	require.ErrorIs(t, ch.WriteBlocking([]byte("x")), ErrNotConfigured)
	require.ErrorIs(t, ch.WriteAsync([]byte("x"), nil), ErrNotConfigured)
}

func TestNewChannelDefaultCapacity(t *testing.T) {
	ch := NewChannel(0, newMockUART(), 0)
	require.Equal(t, DefaultRxBufferSize, ch.RxCapacity())
}

func TestWriteBlockingInOrder(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.depth = 3
	drv.budget = 0

	msg := []byte("This message has been transmitted using polled method. \r\n")
	require.NoError(t, ch.WriteBlocking(msg))
	require.Equal(t, msg, drv.written)
}

func TestWriteAsyncArmsAndReturns(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.budget = 0

	require.NoError(t, ch.WriteAsync([]byte("menu"), nil))
	require.Equal(t, IRQTxEmpty, drv.enabled&IRQTxEmpty)
	require.Empty(t, drv.written, "nothing is written before the first TBE interrupt")
	require.False(t, ch.TxDone())

	idx, total := ch.TxProgress()
	require.Equal(t, uint32(0), idx)
	require.Equal(t, uint32(4), total)
}

func TestWriteAsyncEmpty(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	called := 0
	require.NoError(t, ch.WriteAsync(nil, func() { called++ }))
	require.Equal(t, 1, called)
	require.Zero(t, drv.enabled&IRQTxEmpty)
	require.True(t, ch.TxDone())
}

func TestContinueTxChunkingInvariance(t *testing.T) {
	payload := []byte("This program is run from u54_2\r\n")
	for _, chunk := range []int{1, 2, 3, 7, 16, len(payload), len(payload) + 5} {
		ch, drv := newConfiguredChannel(16)
		drv.budget = 0
		done := 0
		require.NoError(t, ch.WriteAsync(payload, func() { done++ }))

		invocations := 0
		for !ch.TxDone() {
			drv.budget = chunk
			ch.ContinueTx()
			invocations++
			require.LessOrEqual(t, invocations, len(payload), "chunk=%d made no progress", chunk)
		}

		want := (len(payload) + chunk - 1) / chunk
		require.Equal(t, payload, drv.written, "chunk=%d", chunk)
		require.Equal(t, want, invocations, "chunk=%d", chunk)
		require.Equal(t, 1, done, "chunk=%d", chunk)
		require.Zero(t, drv.enabled&IRQTxEmpty, "chunk=%d left TBE armed", chunk)
	}
}

func TestContinueTxTwoByteScenario(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.budget = 0
	require.NoError(t, ch.WriteAsync([]byte("AB"), nil))

	drv.budget = 1
	ch.ContinueTx()
	idx, _ := ch.TxProgress()
	require.Equal(t, uint32(1), idx)
	require.False(t, ch.TxDone())

	drv.budget = 1
	ch.ContinueTx()
	idx, total := ch.TxProgress()
	require.Equal(t, uint32(2), idx)
	require.Equal(t, uint32(2), total)
	require.Equal(t, []byte{'A', 'B'}, drv.written)
}

func TestContinueTxTerminalIdempotent(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	done := 0
	require.NoError(t, ch.WriteAsync([]byte("done"), func() { done++ }))
	ch.ContinueTx()
	require.True(t, ch.TxDone())
	require.Equal(t, 1, done)

	written := append([]byte(nil), drv.written...)
	for i := 0; i < 5; i++ {
		drv.EnableIRQ(ch.ID, IRQTxEmpty) // late firing re-armed by hardware
		ch.ContinueTx()
		idx, total := ch.TxProgress()
		require.Equal(t, uint32(4), idx)
		require.Equal(t, uint32(4), total)
		require.Zero(t, drv.enabled&IRQTxEmpty)
	}
	require.Equal(t, 1, done)
	require.Equal(t, written, drv.written)
}

func TestContinueTxZeroAccepted(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.budget = 0
	done := 0
	require.NoError(t, ch.WriteAsync([]byte("xyz"), func() { done++ }))

	for i := 0; i < 3; i++ {
		ch.ContinueTx()
	}
	idx, _ := ch.TxProgress()
	require.Equal(t, uint32(0), idx)
	require.Zero(t, done)
	require.Equal(t, IRQTxEmpty, drv.enabled&IRQTxEmpty, "transfer still in flight")

	drv.budget = -1
	ch.ContinueTx()
	require.True(t, ch.TxDone())
	require.Equal(t, 1, done)
}

func TestCustomTxHandler(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	calls := 0
	ch.SetTxHandler(TxHandlerFunc(func(c *Channel) {
		calls++
		c.FillTxFIFO()
	}))
	require.NoError(t, ch.WriteAsync([]byte("hi"), nil))
	ch.ContinueTx()
	ch.ContinueTx()
	require.Equal(t, 1, calls, "handler is not invoked after completion")
	require.Equal(t, []byte("hi"), drv.written)

	ch.SetTxHandler(nil)
	require.NoError(t, ch.WriteAsync([]byte("!"), nil))
	ch.ContinueTx()
	require.Equal(t, 1, calls)
	require.Equal(t, []byte("hi!"), drv.written)
}

func TestTxComplete(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	require.NoError(t, ch.WriteAsync([]byte("x"), nil))
	drv.txIdle = false
	ch.ContinueTx()
	require.True(t, ch.TxDone())
	require.False(t, ch.TxComplete(), "shifter still busy")
	drv.txIdle = true
	require.True(t, ch.TxComplete())
}

func TestPollReceivedConsumeOnce(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.rx = []byte("3")
	ch.HandleRx()

	payload, ok := ch.PollReceived()
	require.True(t, ok)
	require.Equal(t, []byte("3"), payload)

	payload, ok = ch.PollReceived()
	require.False(t, ok)
	require.Nil(t, payload)
}

func TestReceiveOverwritesUnreadPayload(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.rx = []byte("9")
	ch.HandleRx()
	require.Equal(t, 1, ch.Pending())

	drv.rx = []byte("2")
	ch.HandleRx()
	require.Equal(t, 1, ch.Pending())

	payload, ok := ch.PollReceived()
	require.True(t, ok)
	require.Equal(t, []byte("2"), payload)
	require.Equal(t, uint32(2), ch.RxInterrupts())
}

func TestHandleRxSpurious(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	drv.rx = []byte("1")
	ch.HandleRx()

	ch.HandleRx() // no data left in the FIFO
	require.Equal(t, 1, drv.rxReads, "empty FIFO must not be read")
	require.Equal(t, 1, ch.Pending(), "spurious interrupt must not clear the payload")
	require.Equal(t, uint32(1), ch.RxInterrupts())
}

func TestHandleRxBoundedByCapacity(t *testing.T) {
	ch, drv := newConfiguredChannel(4)
	drv.rx = []byte("abcdefg")
	ch.HandleRx()

	payload, ok := ch.PollReceived()
	require.True(t, ok)
	require.Equal(t, []byte("abcd"), payload)
	require.Equal(t, 3, drv.FIFOReadAvailable(ch.ID))
}

func TestRxHandlerEcho(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	var counts []uint32
	ch.SetRxHandler(func(c *Channel, irqCount uint32) {
		counts = append(counts, irqCount)
		require.NoError(t, c.WriteBlocking([]byte("ack")))
	})

	drv.rx = []byte("x")
	ch.HandleRx()
	drv.rx = []byte("y")
	ch.HandleRx()

	require.Equal(t, []uint32{1, 2}, counts)
	require.Equal(t, []byte("ackack"), drv.written)
}

func TestHandleInterruptDispatch(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	ch.EnableRx()
	require.NoError(t, ch.WriteAsync([]byte("out"), nil))
	drv.rx = []byte("in")

	ch.HandleInterrupt()

	payload, ok := ch.PollReceived()
	require.True(t, ok)
	require.Equal(t, []byte("in"), payload)
	require.True(t, ch.TxDone())
	require.Equal(t, []byte("out"), drv.written)

	ch.DisableRx()
	drv.rx = []byte("z")
	ch.HandleInterrupt()
	require.Zero(t, ch.Pending(), "masked RX source is not dispatched")
}
