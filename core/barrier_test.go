package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startBarrier(b *BootBarrier) <-chan struct{} {
	released := make(chan struct{})
	go func() {
		b.Wait()
		close(released)
	}()
	return released
}

func TestBootBarrierBlocksUntilSignal(t *testing.T) {
	ctrl := newMockController()
	hart := &mockHart{id: 3, ctrl: ctrl}
	barrier := NewBootBarrier(hart, ctrl)

	released := startBarrier(barrier)
	select {
	case <-released:
		t.Fatal("barrier returned without a signal")
	case <-time.After(50 * wakeCycle):
	}

	NewNotifier(ctrl).Signal(3)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("barrier not released after signal")
	}

	require.False(t, ctrl.pending(3), "barrier clears the pending bit")
	require.Equal(t, 1, ctrl.cleared[3])
	require.Equal(t, uint32(1), barrier.Releases())
}

func TestBootBarrierKeepsEarlyRelease(t *testing.T) {
	ctrl := newMockController()
	hart := &mockHart{id: 1, ctrl: ctrl}
	NewNotifier(ctrl).Signal(1)

	barrier := NewBootBarrier(hart, ctrl)
	barrier.Wait()
	require.Zero(t, hart.wakes, "pending release is observed without sleeping")
	require.False(t, ctrl.pending(1))
}

func TestBootBarrierBlocksAgain(t *testing.T) {
	ctrl := newMockController()
	hart := &mockHart{id: 2, ctrl: ctrl}
	barrier := NewBootBarrier(hart, ctrl)
	notifier := NewNotifier(ctrl)

	notifier.Signal(2)
	barrier.Wait()

	released := startBarrier(barrier)
	select {
	case <-released:
		t.Fatal("second wait consumed the first release")
	case <-time.After(20 * wakeCycle):
	}

	notifier.Signal(2)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("second release not observed")
	}
	require.Equal(t, uint32(2), barrier.Releases())
}

func TestBootBarrierIgnoresOtherHarts(t *testing.T) {
	ctrl := newMockController()
	hart := &mockHart{id: 4, ctrl: ctrl}
	released := startBarrier(NewBootBarrier(hart, ctrl))

	NewNotifier(ctrl).Signal(1)
	select {
	case <-released:
		t.Fatal("released by a signal addressed to another hart")
	case <-time.After(20 * wakeCycle):
	}

	NewNotifier(ctrl).Signal(4)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("barrier not released")
	}
}
