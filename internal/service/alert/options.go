package alert

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the alert controller firmware.
const DefaultBaudRate = 9600

// PortOptions configures the alert port. Framing is fixed at 8N1; only the rate varies.
type PortOptions struct {
	BaudRate int `json:"baud_rate"`
}

// SerialMode returns the 8N1 mode for the configured rate, DefaultBaudRate when unset.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	baud := o.BaudRate
	switch {
	case baud == 0:
		baud = DefaultBaudRate
	case baud < 0:
		return nil, fmt.Errorf("invalid baud rate %d", baud)
	}

	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}, nil
}
