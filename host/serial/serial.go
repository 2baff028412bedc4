// Package serial opens the USB-serial link the firmware's UART is wired to
package serial

import (
	"io"
)

// Port represents a serial port
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate; must match the firmware's UART setting
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud is the firmware's UART rate
const DefaultBaud = 9600

// DefaultConfig returns a configuration matching the firmware image
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}
