// Package monitor decodes the firmware's record stream on the host
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"accelmon/host/serial"
	"accelmon/protocol"
)

// Line is one terminator-delimited line from the firmware: either a sample
// record or diagnostic text
type Line struct {
	Sample   protocol.Sample
	Text     string
	IsSample bool
}

// String renders the line for display
func (l Line) String() string {
	if l.IsSample {
		return fmt.Sprintf("%4d %4d", l.Sample.A, l.Sample.B)
	}
	return "# " + strings.TrimRight(l.Text, "\n")
}

// Stats counts decoded lines
type Stats struct {
	Samples     uint64
	Diagnostics uint64
	Overflows   uint64
}

// Monitor reads lines from a firmware output stream
type Monitor struct {
	src    io.Reader
	closer io.Closer
	reader *protocol.RecordReader

	// idleEOF treats io.EOF as a read timeout, which is how a serial port
	// with a read timeout reports an idle line
	idleEOF bool

	stats Stats
}

// New creates a Monitor over an arbitrary stream; io.EOF ends it
func New(r io.Reader) *Monitor {
	return &Monitor{
		src:    r,
		reader: protocol.NewRecordReader(r),
	}
}

// Connect opens a serial port and returns a Monitor reading from it
func Connect(cfg *serial.Config) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	m := New(port)
	m.closer = port
	m.idleEOF = true
	return m, nil
}

// Close releases the underlying port, if any
func (m *Monitor) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

// Next returns the next decoded line. Oversized lines are skipped.
func (m *Monitor) Next() (Line, error) {
	for {
		raw, err := m.reader.Next()
		switch {
		case err == nil:
		case errors.Is(err, protocol.ErrLineTooLong):
			m.stats.Overflows++
			continue
		default:
			return Line{}, err
		}

		if s, err := protocol.ParseRecord(raw); err == nil {
			m.stats.Samples++
			return Line{Sample: s, IsSample: true}, nil
		}
		m.stats.Diagnostics++
		return Line{Text: string(raw)}, nil
	}
}

// Run calls fn for every line until ctx is cancelled or the stream ends.
// A clean end of stream returns nil.
func (m *Monitor) Run(ctx context.Context, fn func(Line)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := m.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if m.idleEOF {
					continue
				}
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		fn(line)
	}
}

// Stats returns the line counters
func (m *Monitor) Stats() Stats {
	return m.stats
}
