package crc

import "testing"

func TestAddr5Deterministic(t *testing.T) {
	for input := uint32(0); input < 0x800; input++ {
		got1 := Addr5(input)
		got2 := Addr5(input)
		if got1 != got2 {
			t.Fatalf("Addr5(%d) not deterministic: %d vs %d", input, got1, got2)
		}
		if got1 > 0x1F {
			t.Fatalf("Addr5(%d) = %d exceeds 5 bits", input, got1)
		}
	}
}

func TestAddr5DependsOnlyOnHighBits(t *testing.T) {
	// Inputs that differ only above the low 11 bits must give the same CRC.
	for input := uint32(0); input < 0x10000; input++ {
		a := Addr5(input)
		b := Addr5(input & 0x7FF)
		if a != b {
			t.Fatalf("Addr5(%d) should be stable under masking to 11 bits", input)
		}
	}
}

func TestPackExtractRoundTrip(t *testing.T) {
	for a := 0; a < 0x10000; a += 0x20 {
		addr := uint16(a)
		packed, err := PackAddr(addr)
		if err != nil {
			t.Fatalf("PackAddr(0x%04x): %v", addr, err)
		}

		gotAddr, gotCRC := ExtractAddr(packed)
		if gotAddr != addr {
			t.Fatalf("ExtractAddr(PackAddr(0x%04x)) addr = 0x%04x, want 0x%04x", addr, gotAddr, addr)
		}

		wantCRC := Addr5(uint32(addr) >> 5)
		if gotCRC != wantCRC {
			t.Fatalf("ExtractAddr(PackAddr(0x%04x)) crc = 0x%02x, want 0x%02x", addr, gotCRC, wantCRC)
		}
	}
}

func TestPackAddrRejectsUnaligned(t *testing.T) {
	for _, addr := range []uint16{0x0001, 0x001F, 0x8001, 0xFFFF} {
		if _, err := PackAddr(addr); err == nil {
			t.Errorf("PackAddr(0x%04x) should fail: address is not 32-byte aligned", addr)
		}
	}
}

// Known-good vectors captured from the shift-register form; pins the exact
// polynomial schedule so a refactor can't silently change the wire encoding.
func TestPackAddrKnownVectors(t *testing.T) {
	cases := []struct {
		addr uint16
		want [2]byte
	}{
		{0x8000, [2]byte{0x80, 0x01}},
		{0x0020, [2]byte{0x00, 0x35}},
	}

	for _, tc := range cases {
		packed, err := PackAddr(tc.addr)
		if err != nil {
			t.Fatalf("PackAddr(0x%04x): %v", tc.addr, err)
		}
		got := [2]byte{byte(packed >> 8), byte(packed)}
		if got != tc.want {
			t.Errorf("PackAddr(0x%04x) = %02x %02x, want %02x %02x",
				tc.addr, got[0], got[1], tc.want[0], tc.want[1])
		}
	}
}

func TestData8BitFormMatchesTable(t *testing.T) {
	for i := 0; i < 256; i++ {
		buf := []byte{byte(i)}
		if got, want := Data8(buf), Data8Bits(buf); got != want {
			t.Fatalf("Data8(%v) = 0x%02x, Data8Bits = 0x%02x", buf, got, want)
		}
	}
}

func TestData8KnownVectors(t *testing.T) {
	zero := make([]byte, 32)
	if got := Data8(zero); got != 0x00 {
		t.Errorf("Data8(32 zero bytes) = 0x%02x, want 0x00", got)
	}

	ones := make([]byte, 32)
	for i := range ones {
		ones[i] = 0xFF
	}
	bitForm := Data8Bits(ones)
	if got := Data8(ones); got != bitForm {
		t.Errorf("Data8(32 0xff bytes) = 0x%02x, want 0x%02x (bit form)", got, bitForm)
	}
}

func TestData8RandomBuffersAgree(t *testing.T) {
	seed := uint32(12345)
	next := func() byte {
		seed = seed*1103515245 + 12345
		return byte(seed >> 16)
	}

	for trial := 0; trial < 64; trial++ {
		buf := make([]byte, 32)
		for i := range buf {
			buf[i] = next()
		}
		if got, want := Data8(buf), Data8Bits(buf); got != want {
			t.Fatalf("trial %d: Data8 = 0x%02x, Data8Bits = 0x%02x for %v", trial, got, want, buf)
		}
	}
}
