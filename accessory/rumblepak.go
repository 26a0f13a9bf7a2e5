package accessory

import "github.com/jamchamb/cojiro/joybus"

// RumblePak drives the Rumble Pak's single motor-control register.
type RumblePak struct {
	Base
}

// NewRumblePak builds a Rumble Pak driver bound to pad.
func NewRumblePak(pad *joybus.Client) *RumblePak {
	return &RumblePak{Base: NewBase(pad, IDRumble)}
}

// SetRumble turns the motor on or off.
func (r *RumblePak) SetRumble(on bool) error {
	data := make([]byte, 32)
	if on {
		for i := range data {
			data[i] = 0x01
		}
	}
	return r.Pad.PakWrite(0xC000, data)
}
