package alert

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"cctvstation/internal/logger"

	"go.bug.st/serial"
)

// TestPayload is written by the manual diagnostic.
const TestPayload = "Test"

// ErrPortClosed is returned when writing without an open port.
var ErrPortClosed = errors.New("alert port is not open")

// Port is the subset of serial.Port the channel needs.
type Port interface {
	io.Writer
	io.Closer
	ResetInputBuffer() error
}

// Opener opens a serial port. Tests replace it with a fake.
type Opener func(name string, mode *serial.Mode) (Port, error)

// OpenSerial opens a real serial port.
func OpenSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// ListPorts returns the serial ports present on the host, sorted.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Channel is the byte link to the alert hardware. Only the pipeline sends
// alerts through it, but opening and closing are driven by the control API.
type Channel struct {
	mu      sync.Mutex
	opener  Opener
	options PortOptions
	port    Port
	name    string
	logger  *logger.Logger
}

// NewChannel returns a closed channel. A nil opener uses OpenSerial.
func NewChannel(options PortOptions, opener Opener, logger *logger.Logger) *Channel {
	if opener == nil {
		opener = OpenSerial
	}
	return &Channel{opener: opener, options: options, logger: logger}
}

// Open connects to the named port, replacing any port already open, and drops stale input.
// The name may carry a description after the device ("COM3 - USB Serial"); only the first field is used.
func (c *Channel) Open(name string) error {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return errors.New("no serial port selected")
	}
	device := fields[0]

	mode, err := c.options.SerialMode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	port, err := c.opener(device, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		c.logger.Warning("Could not flush input of %s: %v", device, err)
	}

	c.port = port
	c.name = device
	c.logger.Info("Selected port: %s (%d baud)", device, mode.BaudRate)
	return nil
}

// Flush discards unread input from the device.
func (c *Channel) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrPortClosed
	}
	return c.port.ResetInputBuffer()
}

// Write sends raw bytes to the device.
func (c *Channel) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(p)
}

func (c *Channel) writeLocked(p []byte) error {
	if c.port == nil {
		return ErrPortClosed
	}
	n, err := c.port.Write(p)
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", c.name, err)
	}
	if n != len(p) {
		return fmt.Errorf("short write to %s: %d of %d bytes", c.name, n, len(p))
	}
	return nil
}

// Send flushes pending input and writes label as ASCII.
func (c *Channel) Send(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return ErrPortClosed
	}
	if err := c.port.ResetInputBuffer(); err != nil {
		c.logger.Warning("Could not flush input of %s: %v", c.name, err)
	}
	return c.writeLocked([]byte(label))
}

// SendTest writes the diagnostic payload.
func (c *Channel) SendTest() error {
	return c.Send(TestPayload)
}

// IsOpen reports whether a port is connected.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// PortName returns the open device, or "" when closed.
func (c *Channel) PortName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Close releases the port. Closing a closed channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Channel) closeLocked() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	c.name = ""
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
