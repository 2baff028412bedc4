package core

import "accelmon/protocol"

// FormatRecord converts a completed sample set into its wire record
func FormatRecord(s *SampleSet) protocol.Record {
	var rec protocol.Record
	protocol.EncodeRecord(&rec, s.Values[AxisA], s.Values[AxisB])
	return rec
}

// deliver hands a completed cycle to the output pipeline
func (f *Firmware) deliver(s *SampleSet) {
	rec := FormatRecord(s)
	f.out.Enqueue(rec[:])
	f.out.Flush()
}
