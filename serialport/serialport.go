// Package serialport is the one concrete, hardware-facing transport for the
// core protocol stack: it opens a real UART using github.com/tarm/serial and
// hands back an io.ReadWriteCloser the frame codec can speak to. The core
// itself never imports this package directly — cmd/cojiro wires it in — so
// every other package stays testable against an in-memory fake.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud matches the bridge's real UART baud rate.
const DefaultBaud = 1500000

// readTimeout bounds each individual read so a dead bridge doesn't hang the
// process forever; the frame codec itself has no notion of timeouts and
// simply retries zero-length reads, so this is purely a transport-level
// safety net.
const readTimeout = 5 * time.Second

// Open opens path at baud and returns a channel suitable for frame.New.
func Open(path string, baud int) (io.ReadWriteCloser, error) {
	cfg := &serial.Config{
		Name:        path,
		Baud:        baud,
		ReadTimeout: readTimeout,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", path, err)
	}

	if err := port.Flush(); err != nil {
		return nil, fmt.Errorf("serialport: flush %s: %w", path, err)
	}

	return port, nil
}
