package sim

// FifoBuffer is a circular byte buffer modelling a UART hardware FIFO.
// It is not synchronized; the owning UART holds its lock.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a FIFO that holds up to depth bytes
func NewFifoBuffer(depth int) *FifoBuffer {
	if depth <= 0 {
		depth = 1
	}
	// One slot stays free to tell full from empty
	return &FifoBuffer{
		buf:  make([]byte, depth+1),
		size: depth + 1,
	}
}

// Push appends one byte, reporting false when full
func (f *FifoBuffer) Push(b byte) bool {
	nextWrite := (f.write + 1) % f.size
	if nextWrite == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = nextWrite
	return true
}

// Write appends as much of data as fits and returns the count
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if !f.Push(b) {
			break
		}
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes that can still be pushed
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Depth returns the capacity in bytes
func (f *FifoBuffer) Depth() int {
	return f.size - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// IsFull returns true if no byte can be pushed
func (f *FifoBuffer) IsFull() bool {
	return f.Free() == 0
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
