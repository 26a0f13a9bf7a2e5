// Package joybus implements the JoyBus controller client: it wraps a UART
// frame codec and speaks the opcode set used to query the controller and
// read/write its attached Pak. Every operation is strictly synchronous — the
// bridge has no reply multiplexing, so one command's response must be fully
// consumed before the next is sent.
package joybus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jamchamb/cojiro/crc"
	"github.com/jamchamb/cojiro/frame"
)

// JoyBus opcodes.
const (
	cmdInfoReset = 0xFF
	cmdInfo      = 0x00
	cmdState     = 0x01
	cmdPakRead   = 0x02
	cmdPakWrite  = 0x03
)

// Joyport status values returned by PadQuery.
const (
	StatusPakReady    = 1 // pak present and ready
	StatusPakInserted = 3 // pak just inserted, retry later
)

// controllerPakSize is the address span of a Controller Pak (32 KiB).
const controllerPakSize = 0x8000

// maxReadRetries bounds the CRC retry loop in DumpControllerPak so a
// persistently bad link fails loudly instead of looping forever.
const maxReadRetries = 8

var (
	// ErrBadLength is returned when a PAK_READ response isn't 33 bytes, or
	// an INFO/INFO_RESET response isn't 3 bytes.
	ErrBadLength = errors.New("joybus: unexpected PAK_READ response length")
	// ErrBadCRC is returned when a PAK_READ response fails its data CRC.
	ErrBadCRC = errors.New("joybus: data CRC mismatch")
	// ErrBadPayload is returned when a PAK_WRITE data buffer isn't 32 bytes.
	ErrBadPayload = errors.New("joybus: PAK_WRITE payload must be 32 bytes")
	// ErrRetriesExhausted is returned by DumpControllerPak when a single
	// address fails its CRC on maxReadRetries consecutive attempts.
	ErrRetriesExhausted = errors.New("joybus: exhausted CRC retries")
)

// Client is a JoyBus controller client bound to one UART frame codec. All
// accessory drivers built on top of a Client funnel through it and therefore
// serialize implicitly; no locking is required because no parallelism is
// introduced at this layer.
type Client struct {
	codec *frame.Codec
}

// New wraps a frame.Codec in a controller Client.
func New(codec *frame.Codec) *Client {
	return &Client{codec: codec}
}

// PadQuery sends INFO (or INFO_RESET, if reset is true) and parses the
// 3-byte response into a pad type and joyport status.
func (c *Client) PadQuery(reset bool) (padType uint16, joyportStatus uint8, err error) {
	opcode := byte(cmdInfo)
	if reset {
		opcode = cmdInfoReset
	}

	_, resp, err := c.send([]byte{opcode})
	if err != nil {
		return 0, 0, err
	}
	if len(resp) != 3 {
		return 0, 0, fmt.Errorf("joybus: pad query: %w (got %d bytes)", ErrBadLength, len(resp))
	}

	padType = binary.LittleEndian.Uint16(resp[0:2])
	joyportStatus = resp[2]
	return padType, joyportStatus, nil
}

// PollState sends STATE and returns the raw button/axis response bytes.
func (c *Client) PollState() ([]byte, error) {
	_, resp, err := c.send([]byte{cmdState})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PakRead reads a 32-byte-aligned chunk from the Pak address space and
// verifies its data CRC.
func (c *Client) PakRead(addr uint16) ([32]byte, error) {
	var chunk [32]byte

	packed, err := crc.PackAddr(addr)
	if err != nil {
		return chunk, fmt.Errorf("joybus: pak read 0x%04x: %w", addr, err)
	}

	cmd := make([]byte, 3)
	cmd[0] = cmdPakRead
	binary.BigEndian.PutUint16(cmd[1:3], packed)

	_, resp, err := c.send(cmd)
	if err != nil {
		return chunk, err
	}
	if len(resp) != 33 {
		return chunk, fmt.Errorf("joybus: pak read 0x%04x: %w (got %d bytes)", addr, ErrBadLength, len(resp))
	}

	copy(chunk[:], resp[:32])
	received := resp[32]
	calculated := crc.Data8(chunk[:])
	if received != calculated {
		return chunk, fmt.Errorf("joybus: pak read 0x%04x: %w (received 0x%02x, calculated 0x%02x)",
			addr, ErrBadCRC, received, calculated)
	}

	return chunk, nil
}

// PakWrite writes a 32-byte chunk to the Pak address space.
func (c *Client) PakWrite(addr uint16, data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("joybus: pak write 0x%04x: %w", addr, ErrBadPayload)
	}

	packed, err := crc.PackAddr(addr)
	if err != nil {
		return fmt.Errorf("joybus: pak write 0x%04x: %w", addr, err)
	}

	cmd := make([]byte, 3+32)
	cmd[0] = cmdPakWrite
	binary.BigEndian.PutUint16(cmd[1:3], packed)
	copy(cmd[3:], data)

	_, _, err = c.send(cmd)
	return err
}

// CheckAccessoryID performs the 0x8000 identification handshake: it writes a
// reset pattern, then the candidate ID, and reports whether the last byte of
// the post-write readback matches.
func (c *Client) CheckAccessoryID(id uint8) (bool, error) {
	reset := make([]byte, 32)
	for i := range reset {
		reset[i] = 0xFE
	}
	if err := c.PakWrite(0x8000, reset); err != nil {
		return false, err
	}
	if _, err := c.PakRead(0x8000); err != nil {
		return false, err
	}

	idBuf := make([]byte, 32)
	for i := range idBuf {
		idBuf[i] = id
	}
	if err := c.PakWrite(0x8000, idBuf); err != nil {
		return false, err
	}
	resp, err := c.PakRead(0x8000)
	if err != nil {
		return false, err
	}

	return resp[31] == id, nil
}

// DumpControllerPak walks the full 32 KiB Controller Pak address space and
// writes it to w in ascending address order. A BadCRC at a given address
// is retried in place (not skipped); after maxReadRetries consecutive
// failures at the same address, it gives up rather than looping forever.
func (c *Client) DumpControllerPak(w io.Writer) error {
	for addr := uint16(0); addr < controllerPakSize; addr += 32 {
		var chunk [32]byte
		var err error

		attempt := 0
		for {
			chunk, err = c.PakRead(addr)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrBadCRC) {
				return err
			}

			attempt++
			if attempt >= maxReadRetries {
				return fmt.Errorf("joybus: dump cpak at 0x%04x: %w", addr, ErrRetriesExhausted)
			}
			slog.Debug("retrying controller pak address after CRC mismatch", "addr", fmt.Sprintf("0x%04x", addr), "attempt", attempt)
		}

		if _, err := w.Write(chunk[:]); err != nil {
			return fmt.Errorf("joybus: dump cpak: %w", err)
		}
	}

	return nil
}

// send is the one choke point through which every command passes: it sends
// the frame and blocks for the synchronized response, enforcing the strict
// request/response ordering the bridge requires.
func (c *Client) send(cmd []byte) (echo []byte, response []byte, err error) {
	if err := c.codec.Send(cmd); err != nil {
		return nil, nil, fmt.Errorf("joybus: send: %w", err)
	}
	return c.codec.SyncRecv()
}
