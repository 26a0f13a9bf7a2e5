// Package crc implements the two checksum disciplines used on the Pak
// address/data bus: a 5-bit address CRC folded into the low bits of a packed
// 16-bit Pak address, and an 8-bit CRC over 32-byte data blocks.
package crc

import "fmt"

// ErrUnalignedAddress is returned by PackAddr when the low 5 bits of the
// address are not clear, since those bits are reserved for the address CRC.
var ErrUnalignedAddress = fmt.Errorf("crc: address must be 32-byte aligned")

// Addr5 computes the 5-bit CRC (polynomial 0x15) over the top 11 bits of a
// 16-bit Pak address, i.e. over addr>>5.
//
// The shift-register form mirrors the hardware implementation bit for bit:
// 11 input bits are folded in MSB-first, then 5 finalization shifts drain the
// register. All arithmetic happens on a 32-bit accumulator masked after every
// step.
func Addr5(input11 uint32) uint8 {
	var crc uint32
	for bitmask := uint32(0x400); bitmask != 0; bitmask >>= 1 {
		crc = (crc << 1) & 0xFFFFFFFF
		if input11&bitmask == 0 {
			if crc&0x20 != 0 {
				crc ^= 0x15
			}
		} else {
			if crc&0x20 != 0 {
				crc ^= 0x14
			} else {
				crc = (crc + 1) & 0xFFFFFFFF
			}
		}
	}

	for i := 0; i < 5; i++ {
		crc = (crc << 1) & 0xFFFFFFFF
		if crc&0x20 != 0 {
			crc ^= 0x15
		}
	}

	return uint8(crc & 0x1F)
}

// PackAddr encodes a 16-bit Pak address for transmission: the low 5 bits
// (which must be clear on input) are replaced with the address CRC.
func PackAddr(addr uint16) (uint16, error) {
	if addr&0x1F != 0 {
		return 0, ErrUnalignedAddress
	}

	crc := Addr5(uint32(addr) >> 5)
	return (addr & 0xFFE0) | uint16(crc), nil
}

// ExtractAddr splits a packed address back into its address and CRC parts.
// It does not itself validate the CRC; callers recompute and compare when
// verification is required.
func ExtractAddr(packed uint16) (addr uint16, crcVal uint8) {
	return packed & 0xFFE0, uint8(packed & 0x1F)
}

// dataCRCTable is built once at init time by running the bit-serial form of
// the 8-bit data CRC (polynomial 0x85) over every possible single input byte.
var dataCRCTable [256]uint8

func init() {
	for i := 0; i < 256; i++ {
		dataCRCTable[i] = data8Bits([]byte{byte(i)})
	}
}

// data8Bits is the bit-serial reference implementation of the 8-bit data CRC.
// It exists primarily to build dataCRCTable and to cross-check Data8 in
// tests; hot paths use the table-driven Data8 instead.
func data8Bits(buf []byte) uint8 {
	var crc uint32
	for _, b := range buf {
		for bitmask := uint32(0x80); bitmask != 0; bitmask >>= 1 {
			crc = (crc << 1) & 0xFFFFFFFF
			if uint32(b)&bitmask == 0 {
				if crc&0x100 != 0 {
					crc ^= 0x85
				}
			} else {
				if crc&0x100 == 0 {
					crc = (crc + 1) & 0xFFFFFFFF
				} else {
					crc ^= 0x84
				}
			}
		}
	}

	for i := 0; i < 8; i++ {
		crc = (crc << 1) & 0xFFFFFFFF
		if crc&0x100 != 0 {
			crc ^= 0x85
		}
	}

	return uint8(crc & 0xFF)
}

// Data8Bits exposes the bit-serial form for property tests that check it
// against the table-driven form.
func Data8Bits(buf []byte) uint8 {
	return data8Bits(buf)
}

// Data8 computes the 8-bit data CRC over buf using the precomputed table.
func Data8(buf []byte) uint8 {
	var crc uint8
	for _, b := range buf {
		index := b ^ crc
		crc = dataCRCTable[index]
	}
	return crc
}
