// Package protocol defines the accelerometer record wire format shared by the
// firmware and the host tools
package protocol

// Version represents the firmware version
const Version = "0.1.0"

// Record layout constants
const (
	FieldWidth = 4   // Digit positions per axis field
	Separator  = ' ' // Between the two axis fields
	Newline    = '\n'
	Terminator = '\r' // Record terminator; consumers split on it

	// RecordLen is the encoded size of one sample record
	RecordLen = 2*FieldWidth + 3

	// QueueCapacity is the default output queue size in bytes
	QueueCapacity = 200
)
