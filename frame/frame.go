// Package frame implements the length-framed UART codec between the host
// and the JoyBus bridge. The core never touches a concrete transport: it
// speaks to anything satisfying io.ReadWriter, so the real serial port (see
// the serialport package) and test fakes look identical to this layer.
package frame

import (
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest payload a single host->bridge frame may carry.
const MaxPayload = 35

const (
	syncMagic1 = 0xAA
	syncMagic2 = 0x55
)

// ErrFrameTooLong is returned by Send when the payload exceeds MaxPayload.
var ErrFrameTooLong = errors.New("frame: payload exceeds 35 bytes")

// Codec wraps a byte-oriented full-duplex channel and implements the
// host<->bridge wire format described in the protocol's data model.
type Codec struct {
	rw io.ReadWriter
}

// New wraps rw in a frame Codec.
func New(rw io.ReadWriter) *Codec {
	return &Codec{rw: rw}
}

// Send writes a single host->bridge frame: a one-byte length prefix followed
// by the payload.
func (c *Codec) Send(payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrFrameTooLong
	}

	buf := make([]byte, 1+len(payload))
	buf[0] = byte(len(payload))
	copy(buf[1:], payload)

	return c.writeAll(buf)
}

// writeAll retries partial writes until the whole buffer is on the wire,
// mirroring the blocking semantics of the underlying channel.
func (c *Codec) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.rw.Write(buf)
		if err != nil {
			return fmt.Errorf("frame: write: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

// SyncRecv reads one bridge->host frame. It hunts for the 0xAA 0x55 resync
// magic first, discarding any bytes in between, since the bridge may emit
// partial frames on startup and any byte loss must realign on the next
// magic pair. It returns the echoed command bytes and the response bytes;
// callers generally only care about the response.
func (c *Codec) SyncRecv() (echo []byte, response []byte, err error) {
	for {
		b, err := c.readByte()
		if err != nil {
			return nil, nil, err
		}
		if b != syncMagic1 {
			continue
		}

		b2, err := c.readByte()
		if err != nil {
			return nil, nil, err
		}
		if b2 != syncMagic2 {
			continue
		}

		cmdLen, err := c.readByte()
		if err != nil {
			return nil, nil, err
		}
		respLen, err := c.readByte()
		if err != nil {
			return nil, nil, err
		}

		echoBytes, err := c.readExact(int(cmdLen))
		if err != nil {
			return nil, nil, err
		}

		var respBytes []byte
		if respLen > 0 {
			respBytes, err = c.readExact(int(respLen))
			if err != nil {
				return nil, nil, err
			}
		}

		return echoBytes, respBytes, nil
	}
}

// readByte blocks until exactly one byte is read. A zero-length read is
// retried rather than treated as an error or EOF; this layer imposes no
// timeout of its own.
func (c *Codec) readByte() (byte, error) {
	buf := make([]byte, 1)
	for {
		n, err := c.rw.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("frame: read: %w", err)
		}
		if n == 1 {
			return buf[0], nil
		}
	}
}

// readExact blocks until exactly n bytes have been read.
func (c *Codec) readExact(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := c.rw.Read(buf[got:])
		if err != nil {
			return nil, fmt.Errorf("frame: read: %w", err)
		}
		got += m
	}
	return buf, nil
}
