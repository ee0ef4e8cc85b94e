package core

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamReadWrite(t *testing.T) {
	ch, drv := newConfiguredChannel(16)
	s := NewStream(ch)

	n, err := io.WriteString(s, "hart3 out of WFI\r\n")
	require.NoError(t, err)
	require.Equal(t, 18, n)
	require.Equal(t, []byte("hart3 out of WFI\r\n"), drv.written)

	buf := make([]byte, 4)
	n, err = s.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)

	drv.rx = []byte("123456")
	ch.HandleRx()
	require.Equal(t, 6, s.Buffered())

	n, _ = s.Read(buf)
	require.Equal(t, "1234", string(buf[:n]))
	require.Equal(t, 2, s.Buffered())
	require.Zero(t, ch.Pending(), "payload moved out of the channel")

	n, _ = s.Read(buf)
	require.Equal(t, "56", string(buf[:n]))
	require.Zero(t, s.Buffered())
}

func TestStreamWriteUnconfigured(t *testing.T) {
	s := NewStream(NewChannel(0, newMockUART(), 16))
	n, err := s.Write([]byte("x"))
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Zero(t, n)
}
