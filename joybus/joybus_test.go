package joybus_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamchamb/cojiro/crc"
	"github.com/jamchamb/cojiro/frame"
	"github.com/jamchamb/cojiro/joybus"
)

// fakeBridge stands in for the physical JoyBus bridge: it terminates the
// frame codec on one end, maintains a flat Pak address space, and replies
// the way the real firmware would for INFO/STATE/PAK_READ/PAK_WRITE. Tests
// drive it purely through the public joybus.Client API.
type fakeBridge struct {
	in  bytes.Buffer // bytes written by the codec (host -> bridge)
	out bytes.Buffer // bytes queued for the codec to read (bridge -> host)

	pakMem      [0x10000 / 32][32]byte
	padType     uint16
	joyport     uint8
	corruptNext bool // force the next PAK_READ response's CRC byte to be wrong
	// accessoryID, if nonzero, is what every PAK_READ at 0x8000 answers with,
	// whatever was last written there.
	accessoryID uint8
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{padType: 0x0500, joyport: joybus.StatusPakReady}
}

func (f *fakeBridge) Write(p []byte) (int, error) {
	f.in.Write(p)
	for f.consumeOneFrame() {
	}
	return len(p), nil
}

func (f *fakeBridge) Read(p []byte) (int, error) {
	return f.out.Read(p)
}

// consumeOneFrame pulls one length-prefixed host frame out of f.in (if a
// complete one is buffered) and appends the corresponding bridge->host frame
// to f.out. Returns whether it consumed a frame, so Write can drain several
// frames buffered in a single call.
func (f *fakeBridge) consumeOneFrame() bool {
	buf := f.in.Bytes()
	if len(buf) < 1 {
		return false
	}
	n := int(buf[0])
	if len(buf) < 1+n {
		return false
	}
	cmd := make([]byte, n)
	copy(cmd, buf[1:1+n])
	f.in.Next(1 + n)

	resp := f.handle(cmd)
	f.out.Write(f.wrap(cmd, resp))
	return true
}

func (f *fakeBridge) wrap(cmd, resp []byte) []byte {
	frameBytes := make([]byte, 4+len(cmd)+len(resp))
	frameBytes[0] = 0xAA
	frameBytes[1] = 0x55
	frameBytes[2] = byte(len(cmd))
	frameBytes[3] = byte(len(resp))
	copy(frameBytes[4:], cmd)
	copy(frameBytes[4+len(cmd):], resp)
	return frameBytes
}

func (f *fakeBridge) handle(cmd []byte) []byte {
	switch cmd[0] {
	case 0x00, 0xFF:
		resp := make([]byte, 3)
		binary.LittleEndian.PutUint16(resp[0:2], f.padType)
		resp[2] = f.joyport
		return resp
	case 0x01:
		return []byte{0, 0, 0, 0}
	case 0x02:
		packed := binary.BigEndian.Uint16(cmd[1:3])
		addr, _ := crc.ExtractAddr(packed)
		idx := addr / 32
		data := f.pakMem[idx]
		if addr == 0x8000 && f.accessoryID != 0 {
			for i := range data {
				data[i] = f.accessoryID
			}
		}
		resp := make([]byte, 33)
		copy(resp[:32], data[:])
		if f.corruptNext {
			resp[32] = crc.Data8(data[:]) ^ 0xFF // deliberately wrong CRC
			f.corruptNext = false
		} else {
			resp[32] = crc.Data8(data[:])
		}
		return resp
	case 0x03:
		packed := binary.BigEndian.Uint16(cmd[1:3])
		addr, _ := crc.ExtractAddr(packed)
		idx := addr / 32
		var data [32]byte
		copy(data[:], cmd[3:35])
		f.pakMem[idx] = data
		return nil
	default:
		return nil
	}
}

func (f *fakeBridge) setMem(addr uint16, data [32]byte) {
	f.pakMem[addr/32] = data
}

func (f *fakeBridge) mem(addr uint16) [32]byte {
	return f.pakMem[addr/32]
}

func newClient(t *testing.T, bridge *fakeBridge) *joybus.Client {
	t.Helper()
	return joybus.New(frame.New(bridge))
}

func TestPadQuery(t *testing.T) {
	bridge := newFakeBridge()
	bridge.padType = 0x0500
	bridge.joyport = joybus.StatusPakReady
	c := newClient(t, bridge)

	padType, status, err := c.PadQuery(false)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0500), padType)
	assert.Equal(t, uint8(joybus.StatusPakReady), status)
}

func TestPakWriteThenRead(t *testing.T) {
	bridge := newFakeBridge()
	c := newClient(t, bridge)

	var want [32]byte
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, c.PakWrite(0x1000, want[:]))

	got, err := c.PakRead(0x1000)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPakWriteRejectsBadPayloadSize(t *testing.T) {
	bridge := newFakeBridge()
	c := newClient(t, bridge)

	err := c.PakWrite(0x1000, make([]byte, 31))
	assert.ErrorIs(t, err, joybus.ErrBadPayload)
}

func TestPakReadDetectsBadCRC(t *testing.T) {
	bridge := newFakeBridge()
	bridge.corruptNext = true
	c := newClient(t, bridge)

	_, err := c.PakRead(0x2000)
	assert.ErrorIs(t, err, joybus.ErrBadCRC)
}

func TestCheckAccessoryID(t *testing.T) {
	bridge := newFakeBridge()
	bridge.accessoryID = 0x84 // a Transfer Pak answers 0x84 whatever ID was written
	c := newClient(t, bridge)

	ok, err := c.CheckAccessoryID(0x84)
	require.NoError(t, err)
	assert.True(t, ok)

	// The same Transfer Pak must not be mistaken for a Rumble Pak.
	ok, err = c.CheckAccessoryID(0x80)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDumpControllerPakWritesFullSpace(t *testing.T) {
	bridge := newFakeBridge()
	var pattern [32]byte
	for i := range pattern {
		pattern[i] = 0x42
	}
	bridge.setMem(0x0020, pattern)

	c := newClient(t, bridge)

	var out bytes.Buffer
	require.NoError(t, c.DumpControllerPak(&out))
	assert.Equal(t, 0x8000, out.Len())
	assert.Equal(t, pattern[:], out.Bytes()[0x20:0x40])
}

func TestDumpControllerPakRetriesThenFails(t *testing.T) {
	bridge := &fakeBridge{padType: 0x0500, joyport: joybus.StatusPakReady}
	// Force every read's CRC byte to be wrong, always, by overriding handle
	// behavior via corruptNext flag re-armed on each read.
	alwaysCorrupt := &corruptingBridge{fakeBridge: bridge}
	c := joybus.New(frame.New(alwaysCorrupt))

	var out bytes.Buffer
	err := c.DumpControllerPak(&out)
	assert.ErrorIs(t, err, joybus.ErrRetriesExhausted)
}

// corruptingBridge wraps fakeBridge and arms corruptNext before every frame
// is consumed, so every PAK_READ response fails its CRC check.
type corruptingBridge struct {
	*fakeBridge
}

func (c *corruptingBridge) Write(p []byte) (int, error) {
	c.fakeBridge.in.Write(p)
	for {
		c.fakeBridge.corruptNext = true
		if !c.fakeBridge.consumeOneFrame() {
			break
		}
	}
	return len(p), nil
}

func TestDumpControllerPakPropagatesNonCRCErrors(t *testing.T) {
	bridge := newFakeBridge()
	c := newClient(t, bridge)

	var out failingWriter
	err := c.DumpControllerPak(&out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, joybus.ErrRetriesExhausted))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}
