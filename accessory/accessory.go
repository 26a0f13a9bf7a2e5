// Package accessory provides the common identification handshake shared by
// every Pak accessory driver (Rumble Pak, Transfer Pak, ...). Concrete
// drivers embed Base and supply their own accessory ID.
package accessory

import "github.com/jamchamb/cojiro/joybus"

// Known accessory IDs.
const (
	IDRumble   = 0x80
	IDTransfer = 0x84
)

// Base is embedded by concrete accessory drivers. It borrows a JoyBus
// controller client for the lifetime of the session.
type Base struct {
	Pad *joybus.Client
	id  uint8
}

// NewBase wraps a controller client and the accessory ID the concrete
// driver expects to see during identification.
func NewBase(pad *joybus.Client, id uint8) Base {
	return Base{Pad: pad, id: id}
}

// CheckPak runs the accessory identification handshake and reports whether
// the attached Pak matches this driver's accessory ID.
func (b Base) CheckPak() (bool, error) {
	return b.Pad.CheckAccessoryID(b.id)
}
