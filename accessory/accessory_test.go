package accessory_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jamchamb/cojiro/accessory"
	"github.com/jamchamb/cojiro/crc"
	"github.com/jamchamb/cojiro/frame"
	"github.com/jamchamb/cojiro/joybus"
)

// fakeBridge is a minimal JoyBus bridge stand-in shared by this package's
// tests: it supports only PAK_READ/PAK_WRITE against a flat memory, which is
// all the identification handshake and rumble motor register need.
type fakeBridge struct {
	in  bytes.Buffer
	out bytes.Buffer

	mem map[uint16][32]byte
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{mem: make(map[uint16][32]byte)}
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
	out := make([]byte, 4+len(cmd)+len(resp))
	out[0], out[1] = 0xAA, 0x55
	out[2], out[3] = byte(len(cmd)), byte(len(resp))
	copy(out[4:], cmd)
	copy(out[4+len(cmd):], resp)
	return out
}

func (f *fakeBridge) handle(cmd []byte) []byte {
	switch cmd[0] {
	case 0x02:
		packed := binary.BigEndian.Uint16(cmd[1:3])
		addr, _ := crc.ExtractAddr(packed)
		data := f.mem[addr]
		resp := make([]byte, 33)
		copy(resp[:32], data[:])
		resp[32] = crc.Data8(data[:])
		return resp
	case 0x03:
		packed := binary.BigEndian.Uint16(cmd[1:3])
		addr, _ := crc.ExtractAddr(packed)
		var data [32]byte
		copy(data[:], cmd[3:35])
		f.mem[addr] = data
		return nil
	default:
		return nil
	}
}

func newPad(bridge *fakeBridge) *joybus.Client {
	return joybus.New(frame.New(bridge))
}

func TestCheckPakMatchesOwnID(t *testing.T) {
	pad := newPad(newFakeBridge())
	base := accessory.NewBase(pad, accessory.IDRumble)

	ok, err := base.CheckPak()
	if err != nil {
		t.Fatalf("CheckPak: %v", err)
	}
	if !ok {
		t.Error("CheckPak() = false, want true for a bridge that echoes the written ID")
	}
}

func TestCheckPakDifferentIDs(t *testing.T) {
	bridge := newFakeBridge()
	pad := newPad(bridge)

	rumble := accessory.NewBase(pad, accessory.IDRumble)
	if ok, err := rumble.CheckPak(); err != nil || !ok {
		t.Fatalf("rumble CheckPak() = (%v, %v), want (true, nil)", ok, err)
	}

	transfer := accessory.NewBase(pad, accessory.IDTransfer)
	if ok, err := transfer.CheckPak(); err != nil || !ok {
		t.Fatalf("transfer CheckPak() = (%v, %v), want (true, nil)", ok, err)
	}
}
