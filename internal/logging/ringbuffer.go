package logging

import (
	"os"
	"sync"
)

// RingBuffer is a thread-safe circular byte buffer. It implements io.Writer
// and overwrites the oldest data when full, so the tail of the debug stream
// is always available for a crash dump.
type RingBuffer struct {
	mu    sync.Mutex
	data  []byte
	write int
	wrap  bool
}

// NewRingBuffer creates a ring buffer holding up to capacity bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1024 * 1024
	}
	return &RingBuffer{data: make([]byte, capacity)}
}

// Write implements io.Writer. Never fails; oldest bytes are dropped on wrap.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(p)
	if n >= len(rb.data) {
		copy(rb.data, p[n-len(rb.data):])
		rb.write = 0
		rb.wrap = true
		return n, nil
	}

	head := len(rb.data) - rb.write
	if n < head {
		copy(rb.data[rb.write:], p)
		rb.write += n
		return n, nil
	}

	copy(rb.data[rb.write:], p[:head])
	copy(rb.data, p[head:])
	rb.write = n - head
	rb.wrap = true
	return n, nil
}

// Bytes returns the buffered contents in chronological order.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.wrap {
		out := make([]byte, rb.write)
		copy(out, rb.data[:rb.write])
		return out
	}

	out := make([]byte, len(rb.data))
	n := copy(out, rb.data[rb.write:])
	copy(out[n:], rb.data[:rb.write])
	return out
}

// DumpToFile writes the buffered contents to path.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o644)
}
