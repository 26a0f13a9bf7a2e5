// Package dump orchestrates the ROM and RAM dump pipelines: it drives the
// Transfer Pak and the MBC banking layer together to stream a cartridge's
// ROM or battery-backed SRAM to a file, bank by bank.
package dump

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jamchamb/cojiro/mbc"
	"github.com/jamchamb/cojiro/transferpak"
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
	chunkSize   = 32
)

// Progress is called after every 32-byte chunk is written, with the running
// total of bytes written so far (it grows by 32 per call, the protocol's
// fixed read granularity). Callers inject their own display; dump itself
// knows nothing about progress bars.
type Progress func(done uint64)

// ErrAborted is returned (wrapped) when a dump is aborted pre-flight because
// the header declares zero ROM/RAM size or the cartridge's MBC family isn't
// supported. Nothing is written to the output in that case.
var ErrAborted = errors.New("dump: aborted pre-flight")

// noopProgress is used when the caller passes a nil Progress.
func noopProgress(uint64) {}

// probeCart is the CartWriter the pre-flight checks run bank switches
// against: it swallows register writes so probing never puts anything on the
// wire or disturbs the cartridge's banking state.
type probeCart struct{}

func (probeCart) CartWrite(uint16, []byte) error { return nil }

// PreflightROM reports whether dumping pak's ROM would abort before any
// data is read: zero declared ROM size, or an MBC family the banking layer
// can't drive. Callers that write to a path (rather than an already-open
// io.Writer) should call this before creating the output file, so an
// aborted dump leaves no partial file on disk. ROM itself also runs this
// check; the probe is wire-silent, so calling it twice is harmless.
func PreflightROM(pak *transferpak.Pak) error {
	h := pak.Header()
	if h == nil {
		return fmt.Errorf("dump: rom: no cartridge header loaded")
	}

	if h.ROMSize() == 0 {
		slog.Info("no ROM banks to dump")
		return fmt.Errorf("dump: rom: %w (romSize=0)", ErrAborted)
	}

	// Pre-flight probe: bank 1 always exists, so a failure here can only
	// mean the MBC family itself isn't supported. The probe runs against a
	// discarding CartWriter so nothing reaches the wire.
	driver := mbc.ForType(h.MBCType())
	if err := driver.SwitchROMBank(probeCart{}, 1); err != nil {
		slog.Info("ROM bank switching for MBC type not implemented")
		return fmt.Errorf("dump: rom: %w: %v", ErrAborted, err)
	}

	return nil
}

// ROM dumps every ROM bank of the cartridge currently loaded on pak to w, in
// ascending bank order with no header. It fails soft (returning ErrAborted,
// creating no output) if the header declares zero ROM or if the MBC family
// can't bank-switch; all other errors propagate and leave the cart enabled
// state best-effort disabled on the way out.
func ROM(pak *transferpak.Pak, w io.Writer, progress Progress) error {
	if progress == nil {
		progress = noopProgress
	}

	if err := PreflightROM(pak); err != nil {
		return err
	}

	h := pak.Header()
	driver := mbc.ForType(h.MBCType())
	totalBanks := int(h.ROMSize() / romBankSize)

	if err := pak.CartEnable(true); err != nil {
		return fmt.Errorf("dump: rom: %w", err)
	}
	defer func() {
		if err := pak.CartEnable(false); err != nil {
			slog.Warn("failed to disable cart power after ROM dump", "error", err)
		}
	}()

	var done uint64
	for bank := 0; bank < totalBanks; bank++ {
		start := uint16(0x0000)
		end := uint16(0x4000)
		if bank > 0 {
			if err := driver.SwitchROMBank(pak, bank); err != nil {
				return fmt.Errorf("dump: rom: bank %d: %w", bank, err)
			}
			start, end = 0x4000, 0x8000
		}

		for addr := start; addr < end; addr += chunkSize {
			chunk, err := pak.CartRead(addr)
			if err != nil {
				return fmt.Errorf("dump: rom: bank %d addr 0x%04x: %w", bank, addr, err)
			}
			if _, err := w.Write(chunk[:]); err != nil {
				return fmt.Errorf("dump: rom: write: %w", err)
			}
			done += chunkSize
			progress(done)
		}
	}

	return nil
}

// PreflightRAM reports whether dumping pak's RAM would abort before any
// data is read: zero declared RAM size, or an MBC family the banking layer
// can't drive. Same no-partial-file reasoning as PreflightROM.
func PreflightRAM(pak *transferpak.Pak) error {
	h := pak.Header()
	if h == nil {
		return fmt.Errorf("dump: ram: no cartridge header loaded")
	}

	if h.RAMSize() == 0 {
		slog.Info("no RAM to dump")
		return fmt.Errorf("dump: ram: %w (ramSize=0)", ErrAborted)
	}

	// Pre-flight probe, same reasoning as ROM's: run against a discarding
	// CartWriter so probing is wire-silent.
	driver := mbc.ForType(h.MBCType())
	if err := driver.SwitchRAMBank(probeCart{}, 0); err != nil {
		slog.Info("RAM bank switching for MBC type not implemented")
		return fmt.Errorf("dump: ram: %w: %v", ErrAborted, err)
	}

	return nil
}

// RAM dumps every battery-backed SRAM bank of the cartridge currently loaded
// on pak to w. Symmetric to ROM: fails soft on zero RAM or unsupported MBC,
// leaves cart/RAM power best-effort disabled on every exit path.
func RAM(pak *transferpak.Pak, w io.Writer, progress Progress) error {
	if progress == nil {
		progress = noopProgress
	}

	if err := PreflightRAM(pak); err != nil {
		return err
	}

	h := pak.Header()
	driver := mbc.ForType(h.MBCType())
	totalBanks := int(h.RAMSize() / ramBankSize)

	if err := pak.CartEnable(true); err != nil {
		return fmt.Errorf("dump: ram: %w", err)
	}
	defer func() {
		if err := pak.CartEnable(false); err != nil {
			slog.Warn("failed to disable cart power after RAM dump", "error", err)
		}
	}()

	if err := pak.EnableRAM(true); err != nil {
		return fmt.Errorf("dump: ram: %w", err)
	}
	defer func() {
		if err := pak.EnableRAM(false); err != nil {
			slog.Warn("failed to disable cart RAM after RAM dump", "error", err)
		}
	}()

	var done uint64
	for bank := 0; bank < totalBanks; bank++ {
		if err := driver.SwitchRAMBank(pak, bank); err != nil {
			return fmt.Errorf("dump: ram: bank %d: %w", bank, err)
		}

		for addr := uint16(0xA000); addr < 0xC000; addr += chunkSize {
			chunk, err := pak.CartRead(addr)
			if err != nil {
				return fmt.Errorf("dump: ram: bank %d addr 0x%04x: %w", bank, addr, err)
			}
			if _, err := w.Write(chunk[:]); err != nil {
				return fmt.Errorf("dump: ram: write: %w", err)
			}
			done += chunkSize
			progress(done)
		}
	}

	return nil
}
