// Package gbheader parses and verifies the Game Boy cartridge header: the
// fixed 80-byte structure assembled from cart reads at 0x100, 0x120 and
// 0x140, plus the derived ROM/RAM size and MBC type fields banking logic
// needs.
package gbheader

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HeaderSize is the number of raw bytes a Header is parsed from.
const HeaderSize = 80

// Offsets of each field within the raw 80-byte header.
const (
	offEntry          = 0
	offLogo           = 4
	offTitle          = 52
	offManufacturer   = 63
	offCGBFlag        = 67
	offNewLicensee    = 68
	offSGBFlag        = 70
	offCartType       = 71
	offROMSize        = 72
	offRAMSize        = 73
	offRegion         = 74
	offOldLicensee    = 75
	offMaskROMVersion = 76
	offHeaderChecksum = 77
	offGlobalChecksum = 78
)

// knownLogoMD5 is the MD5 of the canonical 48-byte Nintendo boot logo. This
// is a fixed-value equality check, not a security property, so MD5's
// collision weaknesses are irrelevant here.
const knownLogoMD5 = "8661ce8a0ebede95e8a131a0aa1717f6"

// MBCType identifies the memory bank controller family a cartridge uses.
type MBCType int

const (
	MBCUnknown MBCType = iota
	MBCNone
	MBC1
	MBC2
	MMM01
	MBC3
	MBC5
	MBC6
	MBC7
)

func (t MBCType) String() string {
	switch t {
	case MBCNone:
		return "NO_MBC"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MMM01:
		return "MMM01"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	case MBC6:
		return "MBC6"
	case MBC7:
		return "MBC7"
	default:
		return "UNKNOWN"
	}
}

// Header is the parsed, immutable representation of a Game Boy cartridge
// header. Once populated it never changes for the lifetime of the cart.
type Header struct {
	Entry          [4]byte
	Logo           [48]byte
	Title          string
	Manufacturer   []byte // nil if folded back into Title (pre-CGB-split cart)
	CGBFlag        byte
	NewLicensee    [2]byte
	SGBFlag        byte
	CartridgeType  byte
	ROMSizeCode    byte
	RAMSizeCode    byte
	Region         byte
	OldLicensee    byte
	MaskROMVersion byte
	HeaderChecksum byte
	GlobalChecksum uint16
}

// Parse unpacks a raw 80-byte header buffer into a Header. It performs no
// verification; call Header.VerifyLogo and Header.VerifyChecksum separately.
func Parse(raw []byte) (*Header, error) {
	if len(raw) != HeaderSize {
		return nil, fmt.Errorf("gbheader: expected %d bytes, got %d", HeaderSize, len(raw))
	}

	h := &Header{}
	copy(h.Entry[:], raw[offEntry:offEntry+4])
	copy(h.Logo[:], raw[offLogo:offLogo+48])

	title := append([]byte(nil), raw[offTitle:offTitle+11]...)
	manufacturer := append([]byte(nil), raw[offManufacturer:offManufacturer+4]...)
	cgbFlag := raw[offCGBFlag]

	if cgbFlag == 0x80 || cgbFlag == 0xC0 {
		h.Manufacturer = manufacturer
		h.CGBFlag = cgbFlag
		h.Title = cleanTitle(title)
	} else {
		// Pre-CGB-split carts: these bytes are just more title characters.
		full := append(title, manufacturer...)
		full = append(full, cgbFlag)
		h.Title = cleanTitle(full)
	}

	copy(h.NewLicensee[:], raw[offNewLicensee:offNewLicensee+2])
	h.SGBFlag = raw[offSGBFlag]
	h.CartridgeType = raw[offCartType]
	h.ROMSizeCode = raw[offROMSize]
	h.RAMSizeCode = raw[offRAMSize]
	h.Region = raw[offRegion]
	h.OldLicensee = raw[offOldLicensee]
	h.MaskROMVersion = raw[offMaskROMVersion]
	h.HeaderChecksum = raw[offHeaderChecksum]
	h.GlobalChecksum = binary.BigEndian.Uint16(raw[offGlobalChecksum : offGlobalChecksum+2])

	return h, nil
}

// cleanTitle trims trailing NUL padding from a raw title field.
func cleanTitle(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// VerifyLogo reports whether the embedded boot logo matches the canonical
// Nintendo logo, by comparing MD5 digests.
func (h *Header) VerifyLogo() bool {
	sum := md5.Sum(h.Logo[:])
	return hex.EncodeToString(sum[:]) == knownLogoMD5
}

// VerifyChecksum recomputes the header checksum over bytes 0x34..0x4C and
// compares it to the stored HeaderChecksum byte.
func (h *Header) VerifyChecksum(raw []byte) bool {
	return HeaderChecksum(raw) == h.HeaderChecksum
}

// HeaderChecksum computes the header checksum over raw[0x34:0x4D]. Since raw
// is the 80-byte header truncated from a cart read starting at 0x100, header
// offset 0x34 is cart address 0x134 (the title) and 0x4C is cart address
// 0x14C (the mask ROM version byte), matching the checksummed range exactly.
func HeaderChecksum(raw []byte) byte {
	var acc byte
	for _, b := range raw[0x34 : 0x4C+1] {
		acc = acc + ^b
	}
	return acc
}

// ROMSizeBytes returns the ROM size in bytes for a given header code.
// Only codes 0-8 are defined; any other code returns 0.
func ROMSizeBytes(code byte) uint32 {
	if code > 8 {
		return 0
	}
	return 0x8000 << code
}

// RAMSizeBytes returns the external RAM size in bytes for a given header
// code.
func RAMSizeBytes(code byte) uint32 {
	switch code {
	case 0:
		return 0
	case 1:
		return 0
	case 2:
		return 0x2000
	case 3:
		return 0x8000
	case 4:
		return 0x20000
	case 5:
		return 0x10000
	default:
		return 0
	}
}

// MBCTypeFromCartType maps the cartridge-type byte to an MBC family.
func MBCTypeFromCartType(cartType byte) MBCType {
	switch {
	case cartType == 0x00 || cartType == 0x08 || cartType == 0x09:
		return MBCNone
	case cartType >= 0x01 && cartType <= 0x03:
		return MBC1
	case cartType >= 0x05 && cartType <= 0x06:
		return MBC2
	case cartType >= 0x0B && cartType <= 0x0D:
		return MMM01
	case cartType >= 0x0F && cartType <= 0x13:
		return MBC3
	case cartType >= 0x19 && cartType <= 0x1E:
		return MBC5
	case cartType == 0x20:
		return MBC6
	case cartType == 0x22:
		return MBC7
	default:
		return MBCUnknown
	}
}

// ROMSize returns the ROM size in bytes for this header.
func (h *Header) ROMSize() uint32 {
	return ROMSizeBytes(h.ROMSizeCode)
}

// RAMSize returns the external RAM size in bytes for this header.
func (h *Header) RAMSize() uint32 {
	return RAMSizeBytes(h.RAMSizeCode)
}

// MBCType returns the MBC family this header's cartridge-type byte selects.
func (h *Header) MBCType() MBCType {
	return MBCTypeFromCartType(h.CartridgeType)
}
