// Package mbc implements the Game Boy cartridge Memory Bank Controller
// banking state machines layered on top of a Transfer Pak. Each supported
// MBC family is a small Driver implementation that knows only how to issue
// the register writes that select a ROM or RAM bank; the actual cart_write
// plumbing is supplied by the caller (the transferpak package) as a
// CartWriter.
package mbc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMBC is returned for MBC families this driver never
	// implements (MBC2, MMM01, MBC6, MBC7).
	ErrUnsupportedMBC = errors.New("mbc: unsupported MBC type")
	// ErrNotImplemented is returned for a supported family's banking paths
	// that are explicitly out of scope (MBC1 banks above 0x1F).
	ErrNotImplemented = errors.New("mbc: banking path not implemented")
	// ErrRomBankRange is returned when a bank index is out of range for the
	// banking hardware; NoMBC returns it for ROM banks above 1 and for any
	// RAM bank other than 0.
	ErrRomBankRange = errors.New("mbc: ROM bank out of range")
)

// CartWriter is the subset of the Transfer Pak driver MBC drivers need:
// writing a 32-byte-repeated register value to a cart address. It exists so
// this package never depends on transferpak (which depends on mbc via the
// Driver interface), avoiding an import cycle.
type CartWriter interface {
	CartWrite(addr uint16, data []byte) error
}

// Driver is the banking interface every supported MBC family implements.
// Dump pipelines speak only this interface, never a concrete MBC type.
type Driver interface {
	// SwitchROMBank selects ROM bank n for the next cart reads at
	// 0x4000-0x7FFF.
	SwitchROMBank(cart CartWriter, n int) error
	// SwitchRAMBank selects RAM bank n for the next cart reads/writes at
	// 0xA000-0xBFFF.
	SwitchRAMBank(cart CartWriter, n int) error
}

// repeat32 builds a 32-byte buffer filled with value, the wire shape every
// register write in this protocol uses.
func repeat32(value byte) []byte {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = value
	}
	return buf
}

// NoMBC drives cartridges with no banking hardware: only ROM banks 0 and 1
// exist (both map to the fixed regions), and no RAM bank other than 0 is
// valid.
type NoMBC struct{}

func (NoMBC) SwitchROMBank(_ CartWriter, n int) error {
	if n > 1 {
		return fmt.Errorf("mbc: NoMBC bank %d: %w", n, ErrRomBankRange)
	}
	return nil
}

func (NoMBC) SwitchRAMBank(_ CartWriter, n int) error {
	if n != 0 {
		return fmt.Errorf("mbc: NoMBC RAM bank %d: %w", n, ErrRomBankRange)
	}
	return nil
}

// MBC1 drives the MBC1 banking registers. The large-ROM 0x20/0x40/0x60
// bank-number aliasing quirk is explicitly out of scope: bank numbers above
// 0x1F fail with ErrNotImplemented rather than silently reading the wrong
// data.
type MBC1 struct{}

func (MBC1) SwitchROMBank(cart CartWriter, n int) error {
	if n > 0x1F {
		return fmt.Errorf("mbc: MBC1 bank %d: %w", n, ErrNotImplemented)
	}
	if err := cart.CartWrite(0x6000, repeat32(0x00)); err != nil {
		return err
	}
	return cart.CartWrite(0x2000, repeat32(byte(n&0x1F)))
}

func (MBC1) SwitchRAMBank(cart CartWriter, n int) error {
	if err := cart.CartWrite(0x6000, repeat32(0x01)); err != nil {
		return err
	}
	return cart.CartWrite(0x4000, repeat32(byte(n&0x3)))
}

// MBC3 drives the MBC3 banking registers.
type MBC3 struct{}

func (MBC3) SwitchROMBank(cart CartWriter, n int) error {
	return cart.CartWrite(0x2000, repeat32(byte(n&0x7F)))
}

func (MBC3) SwitchRAMBank(cart CartWriter, n int) error {
	return cart.CartWrite(0x4000, repeat32(byte(n&0x3)))
}

// MBC5 drives the MBC5 banking registers, including the 9th ROM bank bit.
type MBC5 struct{}

func (MBC5) SwitchROMBank(cart CartWriter, n int) error {
	if err := cart.CartWrite(0x2000, repeat32(byte(n&0xFF))); err != nil {
		return err
	}
	return cart.CartWrite(0x3000, repeat32(byte((n>>8)&0x1)))
}

func (MBC5) SwitchRAMBank(cart CartWriter, n int) error {
	return cart.CartWrite(0x4000, repeat32(byte(n&0xFF)))
}

// Unsupported stands in for MBC families this driver never implements
// (MBC2, MMM01, MBC6, MBC7): any bank-switch attempt fails explicitly rather
// than misbehaving silently.
type Unsupported struct{}

func (Unsupported) SwitchROMBank(_ CartWriter, _ int) error {
	return ErrUnsupportedMBC
}

func (Unsupported) SwitchRAMBank(_ CartWriter, _ int) error {
	return ErrUnsupportedMBC
}
