package alert

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"cctvstation/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort records writes and input resets.
type fakePort struct {
	mu       sync.Mutex
	written  bytes.Buffer
	writes   int
	resets   int
	closed   bool
	writeErr error
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes++
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	return nil
}

type openCall struct {
	name string
	mode *serial.Mode
}

func fakeOpener(port *fakePort, calls *[]openCall, err error) Opener {
	return func(name string, mode *serial.Mode) (Port, error) {
		*calls = append(*calls, openCall{name: name, mode: mode})
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

func TestChannel_OpenUsesDeviceAndBaud(t *testing.T) {
	port := &fakePort{}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(port, &calls, nil), logger.NewDiscard())

	require.NoError(t, c.Open("COM3 - USB-SERIAL CH340 (COM3)"))

	require.Len(t, calls, 1)
	assert.Equal(t, "COM3", calls[0].name)
	assert.Equal(t, 9600, calls[0].mode.BaudRate)
	assert.Equal(t, serial.NoParity, calls[0].mode.Parity)
	assert.Equal(t, 1, port.resets)
	assert.True(t, c.IsOpen())
	assert.Equal(t, "COM3", c.PortName())
}

func TestChannel_OpenFailure(t *testing.T) {
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(nil, &calls, errors.New("busy")), logger.NewDiscard())

	err := c.Open("/dev/ttyUSB0")
	assert.ErrorContains(t, err, "busy")
	assert.False(t, c.IsOpen())
}

func TestChannel_OpenEmptyName(t *testing.T) {
	c := NewChannel(PortOptions{}, nil, logger.NewDiscard())
	assert.Error(t, c.Open("  "))
}

func TestChannel_SendWritesLabel(t *testing.T) {
	port := &fakePort{}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(port, &calls, nil), logger.NewDiscard())
	require.NoError(t, c.Open("/dev/ttyACM0"))

	require.NoError(t, c.Send("Handguns"))
	assert.Equal(t, "Handguns", port.written.String())
	assert.Equal(t, 2, port.resets)
}

func TestChannel_SendTest(t *testing.T) {
	port := &fakePort{}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(port, &calls, nil), logger.NewDiscard())
	require.NoError(t, c.Open("/dev/ttyACM0"))

	require.NoError(t, c.SendTest())
	assert.Equal(t, "Test", port.written.String())
}

func TestChannel_WriteWhenClosed(t *testing.T) {
	c := NewChannel(PortOptions{}, nil, logger.NewDiscard())

	assert.ErrorIs(t, c.Send("Knives"), ErrPortClosed)
	assert.ErrorIs(t, c.Write([]byte("x")), ErrPortClosed)
	assert.ErrorIs(t, c.Flush(), ErrPortClosed)
}

func TestChannel_WriteError(t *testing.T) {
	port := &fakePort{writeErr: errors.New("io timeout")}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(port, &calls, nil), logger.NewDiscard())
	require.NoError(t, c.Open("/dev/ttyACM0"))

	assert.ErrorContains(t, c.Send("SMG"), "io timeout")
	assert.True(t, c.IsOpen())
}

func TestChannel_CloseIdempotentAndReopen(t *testing.T) {
	first := &fakePort{}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(first, &calls, nil), logger.NewDiscard())
	require.NoError(t, c.Open("/dev/ttyACM0"))

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.True(t, first.closed)
	assert.False(t, c.IsOpen())

	require.NoError(t, c.Open("/dev/ttyACM1"))
	assert.Equal(t, "/dev/ttyACM1", c.PortName())
}

func TestChannel_OpenReplacesPreviousPort(t *testing.T) {
	port := &fakePort{}
	var calls []openCall
	c := NewChannel(PortOptions{}, fakeOpener(port, &calls, nil), logger.NewDiscard())
	require.NoError(t, c.Open("/dev/ttyACM0"))
	require.NoError(t, c.Open("/dev/ttyACM0"))

	assert.True(t, port.closed)
	assert.Len(t, calls, 2)
}
