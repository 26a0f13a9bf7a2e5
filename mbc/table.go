package mbc

import "github.com/jamchamb/cojiro/gbheader"

// driverTable maps each MBC family to its Driver implementation. It is a
// constant lookup table, not runtime state: a cartridge's MBC family never
// changes once its header is read, so there's no reason to compute this
// per-cart.
var driverTable = map[gbheader.MBCType]Driver{
	gbheader.MBCNone: NoMBC{},
	gbheader.MBC1:    MBC1{},
	gbheader.MBC3:    MBC3{},
	gbheader.MBC5:    MBC5{},
	gbheader.MBC2:    Unsupported{},
	gbheader.MMM01:   Unsupported{},
	gbheader.MBC6:    Unsupported{},
	gbheader.MBC7:    Unsupported{},
}

// ForType returns the Driver for the given MBC family. An MBC type this
// table has never heard of (MBCUnknown, or some future cartridge-type byte)
// is treated the same as an explicitly unsupported family.
func ForType(t gbheader.MBCType) Driver {
	if d, ok := driverTable[t]; ok {
		return d
	}
	return Unsupported{}
}
