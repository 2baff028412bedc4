package protocol

// ScratchOutput is a bounded linear byte buffer allocated once.
// Writes past capacity are dropped.
type ScratchOutput struct {
	buf []byte
	pos int
}

// NewScratchOutput creates a ScratchOutput holding at most capacity bytes
func NewScratchOutput(capacity int) *ScratchOutput {
	return &ScratchOutput{buf: make([]byte, capacity)}
}

// Output appends as much of data as fits and returns the count written
func (s *ScratchOutput) Output(data []byte) int {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	return n
}

// OutputByte appends a single byte, reporting false when full
func (s *ScratchOutput) OutputByte(b byte) bool {
	if s.pos >= len(s.buf) {
		return false
	}
	s.buf[s.pos] = b
	s.pos++
	return true
}

// Len returns the number of buffered bytes
func (s *ScratchOutput) Len() int {
	return s.pos
}

// Cap returns the fixed capacity
func (s *ScratchOutput) Cap() int {
	return len(s.buf)
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
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

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Data returns available data as a slice.
// When wrapped, both segments are copied into a new contiguous slice.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	avail := f.Available()
	result := make([]byte, avail)

	firstLen := f.size - f.read
	copy(result, f.buf[f.read:])
	copy(result[firstLen:], f.buf[:f.write])

	return result
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
