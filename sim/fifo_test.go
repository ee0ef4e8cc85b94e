package sim

import "testing"

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(9)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}
	if fifo.Depth() != 9 {
		t.Errorf("Expected depth 9, got %d", fifo.Depth())
	}

	written := fifo.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)
	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}
	if fifo.Available() != 2 {
		t.Errorf("After reading 3, expected 2 available, got %d", fifo.Available())
	}

	fifo.Reset()
	bigData := make([]byte, 12)
	for i := range bigData {
		bigData[i] = byte(i)
	}
	written = fifo.Write(bigData)
	if written != 9 {
		t.Errorf("Expected to write 9 bytes to depth-9 FIFO, wrote %d", written)
	}
	if !fifo.IsFull() {
		t.Error("FIFO should be full")
	}
	if fifo.Push(0xFF) {
		t.Error("Push into a full FIFO should fail")
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(4)

	fifo.Write([]byte{1, 2, 3, 4})

	readBuf := make([]byte, 2)
	fifo.Read(readBuf)

	written := fifo.Write([]byte{5, 6})
	if written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}

	allData := make([]byte, 4)
	read := fifo.Read(allData)
	if read != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", read)
	}
	if allData[0] != 3 || allData[1] != 4 || allData[2] != 5 || allData[3] != 6 {
		t.Errorf("Wrap-around data mismatch: got %v", allData)
	}
}
