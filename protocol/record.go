package protocol

import (
	"bytes"
	"errors"
	"io"
)

var (
	// ErrMalformedRecord is returned when a line is not a sample record
	ErrMalformedRecord = errors.New("malformed record")

	// ErrLineTooLong is returned when no terminator arrives before the
	// reader's buffer fills up; the buffered bytes are discarded
	ErrLineTooLong = errors.New("line exceeds buffer")
)

// Record is one encoded sample line including its terminators
type Record [RecordLen]byte

// Sample is a decoded pair of axis readings
type Sample struct {
	A int
	B int
}

// EncodeRecord writes the fixed-width text form of a sample pair into r.
//
// Each field is filled right to left, least-significant digit first, while
// the value is non-zero. Untouched cells keep the cleared 0x00 value and the
// first cell of each field is never written. There is no sign handling: the
// digits of a negative value come out as '0'+remainder, so -5 encodes as '+'.
func EncodeRecord(r *Record, a, b int8) {
	*r = Record{}
	encodeField(r[:FieldWidth], int(a))
	r[FieldWidth] = Separator
	encodeField(r[FieldWidth+1:2*FieldWidth+1], int(b))
	r[RecordLen-2] = Newline
	r[RecordLen-1] = Terminator
}

func encodeField(field []byte, value int) {
	for j := len(field) - 1; value != 0 && j > 0; j-- {
		field[j] = byte('0' + value%10)
		value /= 10
	}
}

// ParseRecord decodes a record line. The trailing terminator is optional.
//
// Because negative values are encoded as '0'+remainder with a negative
// remainder, summing (cell-'0')*10^k over the written cells recovers the
// signed value for both signs.
func ParseRecord(line []byte) (Sample, error) {
	line = bytes.TrimSuffix(line, []byte{Terminator})
	if len(line) != RecordLen-1 || line[len(line)-1] != Newline || line[FieldWidth] != Separator {
		return Sample{}, ErrMalformedRecord
	}

	a, err := decodeField(line[:FieldWidth])
	if err != nil {
		return Sample{}, err
	}
	b, err := decodeField(line[FieldWidth+1 : 2*FieldWidth+1])
	if err != nil {
		return Sample{}, err
	}
	return Sample{A: a, B: b}, nil
}

func decodeField(field []byte) (int, error) {
	if field[0] != 0 {
		return 0, ErrMalformedRecord
	}

	value := 0
	scale := 1
	negative, positive := false, false
	leading := false
	for j := len(field) - 1; j > 0; j-- {
		c := field[j]
		if c == 0 {
			leading = true
			continue
		}
		// A written cell after a cleared one means the field was not produced
		// by EncodeRecord
		if leading || c < '0'-9 || c > '9' {
			return 0, ErrMalformedRecord
		}
		d := int(c) - '0'
		if d < 0 {
			negative = true
		} else if d > 0 {
			positive = true
		}
		value += d * scale
		scale *= 10
	}
	if negative && positive {
		return 0, ErrMalformedRecord
	}
	return value, nil
}

// RecordReader splits a byte stream into terminator-delimited lines
type RecordReader struct {
	r    io.Reader
	fifo *FifoBuffer
	buf  [64]byte
}

// NewRecordReader creates a RecordReader with a 256-byte line buffer
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{
		r:    r,
		fifo: NewFifoBuffer(256),
	}
}

// Next returns the next line without its terminator. Errors from the
// underlying reader are returned once no complete line is buffered.
func (rr *RecordReader) Next() ([]byte, error) {
	for {
		data := rr.fifo.Data()
		if i := bytes.IndexByte(data, Terminator); i >= 0 {
			line := make([]byte, i)
			copy(line, data[:i])
			rr.fifo.Pop(i + 1)
			return line, nil
		}

		if rr.fifo.Free() == 0 {
			rr.fifo.Reset()
			return nil, ErrLineTooLong
		}

		chunk := rr.buf[:]
		if free := rr.fifo.Free(); free < len(chunk) {
			chunk = chunk[:free]
		}
		n, err := rr.r.Read(chunk)
		if n > 0 {
			rr.fifo.Write(chunk[:n])
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// Buffered returns the number of bytes waiting for a terminator
func (rr *RecordReader) Buffered() int {
	return rr.fifo.Available()
}
