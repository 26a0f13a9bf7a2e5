// Package transferpak drives the Transfer Pak: its access-mode/power and
// aperture-bank registers, and the 16-bit cartridge address space they
// expose through a 16 KiB window. It layers the Game Boy's own MBC banking
// (package mbc) on top to translate full cartridge addresses into the
// Transfer Pak's paged aperture.
package transferpak

import (
	"errors"
	"fmt"

	"github.com/jamchamb/cojiro/accessory"
	"github.com/jamchamb/cojiro/gbheader"
	"github.com/jamchamb/cojiro/joybus"
	"github.com/jamchamb/cojiro/mbc"
)

// Transfer Pak registers in the Pak address space.
const (
	regApertureBank = 0xA000
	regAccessMode   = 0xB000
	apertureBase    = 0xC000
	apertureSize    = 0x4000
)

var (
	// ErrCartNotPowered is returned by cart read/write when cart power is
	// off.
	ErrCartNotPowered = errors.New("transferpak: cartridge not powered")
	// ErrNoRAM is returned by EnableRAM when the header declares no
	// external RAM.
	ErrNoRAM = errors.New("transferpak: cartridge has no RAM")
	// ErrAddrRange is returned for a cart address outside [0, 0xFFFF] or
	// not 32-byte aligned, or a write whose data isn't exactly 32 bytes.
	ErrAddrRange = errors.New("transferpak: invalid cart address or payload")
)

// Pak drives one Transfer Pak accessory. It holds the two pieces of mutable
// state the protocol requires: whether the cart is powered, and which
// aperture bank was last selected (nil until the first successful
// bank-select write, so a freshly constructed driver never assumes it knows
// the bridge's hardware state).
type Pak struct {
	accessory.Base

	cartPowered      bool
	lastApertureBank *uint8
	header           *gbheader.Header
}

// New builds a Transfer Pak driver bound to pad. last-aperture-bank state
// starts unknown, matching a bridge whose hardware state this process has
// not yet observed.
func New(pad *joybus.Client) *Pak {
	return &Pak{Base: accessory.NewBase(pad, accessory.IDTransfer)}
}

// Header returns the most recently loaded Game Boy header, or nil if
// LoadHeader has not been called yet.
func (p *Pak) Header() *gbheader.Header {
	return p.header
}

// CartPresent reads the access-mode register and reports whether a cart is
// plugged into the Transfer Pak.
func (p *Pak) CartPresent() (bool, error) {
	data, err := p.Pad.PakRead(regAccessMode)
	if err != nil {
		return false, err
	}
	return data[31] == 0x80, nil
}

// CartEnable powers the cartridge on or off.
func (p *Pak) CartEnable(on bool) error {
	value := byte(0x00)
	if on {
		value = 0x01
	}

	data := make([]byte, 32)
	for i := range data {
		data[i] = value
	}
	if err := p.Pad.PakWrite(regAccessMode, data); err != nil {
		return err
	}

	p.cartPowered = on
	return nil
}

// EnableRAM writes the cartridge's RAM-enable register (0x0A to enable,
// 0x00 to disable) at cart address 0x0000. It requires a loaded header that
// declares nonzero RAM.
func (p *Pak) EnableRAM(on bool) error {
	if p.header == nil || p.header.RAMSize() == 0 {
		return ErrNoRAM
	}

	value := byte(0x00)
	if on {
		value = 0x0A
	}
	return p.CartWrite(0x0000, repeat32(value))
}

// Translate maps a full 16-bit cartridge address to the aperture bank that
// must be selected and the Pak address that exposes it.
func Translate(cartAddr uint16) (bank uint8, pakAddr uint16) {
	bank = uint8(cartAddr / apertureSize)
	pakAddr = apertureBase + cartAddr%apertureSize
	return bank, pakAddr
}

// switchAperture selects aperture bank if it isn't already selected. This
// is purely an optimization: correctness never depends on the cached value,
// since the cache starts nil and the first call always issues the write.
func (p *Pak) switchAperture(bank uint8) error {
	if p.lastApertureBank != nil && *p.lastApertureBank == bank {
		return nil
	}

	if err := p.Pad.PakWrite(regApertureBank, repeat32(bank)); err != nil {
		return err
	}

	b := bank
	p.lastApertureBank = &b
	return nil
}

func validCartAddr(addr uint16) error {
	if addr&0x1F != 0 {
		return ErrAddrRange
	}
	return nil
}

// CartRead reads a 32-byte-aligned chunk from the cartridge's 16-bit
// address space, auto-selecting the correct Transfer Pak aperture bank.
func (p *Pak) CartRead(addr uint16) ([32]byte, error) {
	var chunk [32]byte

	if !p.cartPowered {
		return chunk, fmt.Errorf("transferpak: cart read 0x%04x: %w", addr, ErrCartNotPowered)
	}
	if err := validCartAddr(addr); err != nil {
		return chunk, fmt.Errorf("transferpak: cart read 0x%04x: %w", addr, err)
	}

	bank, pakAddr := Translate(addr)
	if err := p.switchAperture(bank); err != nil {
		return chunk, err
	}

	return p.Pad.PakRead(pakAddr)
}

// CartWrite writes a 32-byte chunk to the cartridge's 16-bit address space,
// auto-selecting the correct Transfer Pak aperture bank. This is the path
// the mbc package's Driver implementations drive bank-select registers
// through.
func (p *Pak) CartWrite(addr uint16, data []byte) error {
	if !p.cartPowered {
		return fmt.Errorf("transferpak: cart write 0x%04x: %w", addr, ErrCartNotPowered)
	}
	if err := validCartAddr(addr); err != nil {
		return fmt.Errorf("transferpak: cart write 0x%04x: %w", addr, err)
	}
	if len(data) != 32 {
		return fmt.Errorf("transferpak: cart write 0x%04x: %w", addr, ErrAddrRange)
	}

	bank, pakAddr := Translate(addr)
	if err := p.switchAperture(bank); err != nil {
		return err
	}

	return p.Pad.PakWrite(pakAddr, data)
}

// LoadHeader reads the Game Boy cartridge header (cart reads at 0x100,
// 0x120, 0x140, truncated to 80 bytes) and parses it. If verify is true, it
// also runs the logo and header-checksum checks and returns false (without
// storing the header) on either failure; otherwise it always stores the
// parsed header and returns true.
func (p *Pak) LoadHeader(verify bool) (bool, error) {
	var raw []byte
	for _, addr := range []uint16{0x100, 0x120, 0x140} {
		chunk, err := p.CartRead(addr)
		if err != nil {
			return false, err
		}
		raw = append(raw, chunk[:]...)
	}
	raw = raw[:gbheader.HeaderSize]

	h, err := gbheader.Parse(raw)
	if err != nil {
		return false, err
	}

	if verify {
		if !h.VerifyLogo() {
			return false, nil
		}
		if !h.VerifyChecksum(raw) {
			return false, nil
		}
	}

	p.header = h
	return true, nil
}

// MBCDriver returns the banking Driver for the currently loaded header's
// MBC family. LoadHeader must be called first.
func (p *Pak) MBCDriver() mbc.Driver {
	if p.header == nil {
		return mbc.Unsupported{}
	}
	return mbc.ForType(p.header.MBCType())
}

func repeat32(value byte) []byte {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = value
	}
	return buf
}
