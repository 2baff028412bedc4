package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"accelmon/protocol"
)

func record(a, b int8) []byte {
	var r protocol.Record
	protocol.EncodeRecord(&r, a, b)
	return r[:]
}

func TestMonitorRun(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString("bus error nack\n\r")
	stream.Write(record(23, -5))
	stream.Write(bytes.Repeat([]byte{'x'}, 400))
	stream.WriteString("\r")
	stream.Write(record(-128, 127))

	m := New(&stream)
	var got []string
	if err := m.Run(context.Background(), func(l Line) { got = append(got, l.String()) }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"# bus error nack",
		"  23   -5",
		"# " + strings.Repeat("x", 400-255),
		"-128  127",
	}
	if len(got) != len(want) {
		t.Fatalf("Got %d lines %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: %q, want %q", i, got[i], want[i])
		}
	}

	st := m.Stats()
	if st.Samples != 2 || st.Diagnostics != 2 || st.Overflows != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestMonitorRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(bytes.NewReader(record(1, 2)))
	calls := 0
	if err := m.Run(ctx, func(Line) { calls++ }); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Handler called %d times after cancel", calls)
	}
}

func TestMonitorCloseWithoutPort(t *testing.T) {
	if err := New(bytes.NewReader(nil)).Close(); err != nil {
		t.Errorf("Close on a plain stream failed: %v", err)
	}
}
