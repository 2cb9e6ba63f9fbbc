package main

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readPollTimeout bounds how long a drain read may wait on an idle port.
// Short enough that one relay/command cycle stays responsive.
const readPollTimeout = 5 * time.Millisecond

// serialPort is the local transport: a plain 8N1 serial port read with a
// short timeout so ReadAvailable behaves like a non-blocking drain.
type serialPort struct {
	port serial.Port
}

func openSerialPort(device string, baud int) (*serialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return &serialPort{port: port}, nil
}

// ReadAvailable returns whatever is pending, or 0 after the poll timeout.
func (s *serialPort) ReadAvailable(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *serialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialPort) Close() error {
	return s.port.Close()
}
