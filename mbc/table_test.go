package mbc

import (
	"testing"

	"github.com/jamchamb/cojiro/gbheader"
)

func TestForTypeKnownFamilies(t *testing.T) {
	cases := []struct {
		t    gbheader.MBCType
		want Driver
	}{
		{gbheader.MBCNone, NoMBC{}},
		{gbheader.MBC1, MBC1{}},
		{gbheader.MBC3, MBC3{}},
		{gbheader.MBC5, MBC5{}},
	}
	for _, tc := range cases {
		if got := ForType(tc.t); got != tc.want {
			t.Errorf("ForType(%v) = %#v, want %#v", tc.t, got, tc.want)
		}
	}
}

func TestForTypeUnsupportedFamilies(t *testing.T) {
	for _, mt := range []gbheader.MBCType{gbheader.MBC2, gbheader.MMM01, gbheader.MBC6, gbheader.MBC7, gbheader.MBCUnknown} {
		if _, ok := ForType(mt).(Unsupported); !ok {
			t.Errorf("ForType(%v) should be Unsupported", mt)
		}
	}
}
