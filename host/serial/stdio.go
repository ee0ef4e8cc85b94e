package serial

import (
	"bufio"
	"io"
	"sync"
)

// StdioPort is a Port over a reader and a writer, normally os.Stdin and
// os.Stdout. Writes are buffered until Flush.
type StdioPort struct {
	r  io.Reader
	mu sync.Mutex
	w  *bufio.Writer
}

var _ Port = (*StdioPort)(nil)

// NewStdioPort wraps r and w
func NewStdioPort(r io.Reader, w io.Writer) *StdioPort {
	return &StdioPort{r: r, w: bufio.NewWriter(w)}
}

// Read reads from the input side
func (p *StdioPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write buffers b; a line end flushes it
func (p *StdioPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.w.Write(b)
	if err != nil {
		return n, err
	}
	for _, c := range b {
		if c == '\n' {
			return n, p.w.Flush()
		}
	}
	return n, nil
}

// Flush writes any buffered output
func (p *StdioPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Flush()
}

// Close flushes the output; the underlying files stay open
func (p *StdioPort) Close() error {
	return p.Flush()
}
