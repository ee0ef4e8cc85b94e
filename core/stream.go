package core

import "tinygo.org/x/drivers"

// Stream exposes a Channel as a byte stream so device drivers written
// against drivers.UART can run over the interrupt-driven transport.
// Reads consume received payloads; writes use the polled path.
type Stream struct {
	ch      *Channel
	pending []byte
}

var _ drivers.UART = (*Stream)(nil)

// NewStream wraps a configured channel
func NewStream(ch *Channel) *Stream {
	return &Stream{ch: ch}
}

// Read copies buffered payload bytes into p without blocking
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		payload, ok := s.ch.PollReceived()
		if !ok {
			return 0, nil
		}
		s.pending = payload
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write sends p with the polled method
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.ch.WriteBlocking(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Buffered returns the number of received bytes not yet read
func (s *Stream) Buffered() int {
	return len(s.pending) + s.ch.Pending()
}
