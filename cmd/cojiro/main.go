// Command cojiro is the command-line front end for the N64 Transfer Pak
// host bridge: it opens a UART, speaks JoyBus to the attached controller,
// and drives whichever mode the operator selected.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/jamchamb/cojiro/accessory"
	"github.com/jamchamb/cojiro/dump"
	"github.com/jamchamb/cojiro/frame"
	"github.com/jamchamb/cojiro/joybus"
	"github.com/jamchamb/cojiro/serialport"
	"github.com/jamchamb/cojiro/transferpak"
)

func main() {
	app := cli.NewApp()
	app.Name = "cojiro"
	app.Description = "Host bridge for an N64 JoyBus/Transfer Pak UART adapter"
	app.Usage = "cojiro [options] <port>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "baud",
			Usage: "Serial baud rate",
			Value: serialport.DefaultBaud,
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug-level logging",
		},
		cli.StringFlag{
			Name:  "dump-cpak",
			Usage: "Dump Controller Pak contents to the given file",
		},
		cli.BoolFlag{
			Name:  "test-rumble",
			Usage: "Identify and briefly pulse a Rumble Pak",
		},
		cli.BoolFlag{
			Name:  "test-transfer",
			Usage: "Identify a Transfer Pak and print its cartridge header",
		},
		cli.StringFlag{
			Name:  "dump-tpak-rom",
			Usage: "Dump the loaded Game Boy cartridge's ROM to the given file",
		},
		cli.StringFlag{
			Name:  "dump-tpak-ram",
			Usage: "Dump the loaded Game Boy cartridge's save RAM to the given file",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("cojiro failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no serial port provided")
	}
	port := c.Args().Get(0)

	if c.Bool("verbose") {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(handler))
	}

	channel, err := serialport.Open(port, c.Int("baud"))
	if err != nil {
		return err
	}
	defer channel.Close()

	codec := frame.New(channel)
	pad := joybus.New(codec)

	padType, joyportStatus, err := pad.PadQuery(true)
	if err != nil {
		return fmt.Errorf("pad query: %w", err)
	}
	slog.Info("controller ready", "pad_type", fmt.Sprintf("0x%04x", padType), "joyport_status", joyportStatus)

	switch {
	case c.String("dump-cpak") != "":
		return runDumpCPak(pad, joyportStatus, c.String("dump-cpak"))
	case c.Bool("test-rumble"):
		return runTestRumble(pad)
	case c.Bool("test-transfer"):
		return runTestTransfer(pad)
	case c.String("dump-tpak-rom") != "":
		return runDumpTPakROM(pad, c.String("dump-tpak-rom"))
	case c.String("dump-tpak-ram") != "":
		return runDumpTPakRAM(pad, c.String("dump-tpak-ram"))
	default:
		return runPollState(pad)
	}
}

func runPollState(pad *joybus.Client) error {
	for {
		state, err := pad.PollState()
		if err != nil {
			return fmt.Errorf("poll state: %w", err)
		}
		slog.Info("state", "bytes", fmt.Sprintf("% x", state))
	}
}

func runDumpCPak(pad *joybus.Client, joyportStatus uint8, path string) error {
	switch joyportStatus {
	case joybus.StatusPakReady:
	case joybus.StatusPakInserted:
		return errors.New("dump cpak: pak just inserted, please retry")
	default:
		return errors.New("dump cpak: no pak detected")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump cpak: %w", err)
	}
	defer f.Close()

	slog.Info("dumping controller pak", "path", path)
	if err := pad.DumpControllerPak(f); err != nil {
		return fmt.Errorf("dump cpak: %w", err)
	}
	slog.Info("controller pak dump complete", "path", path)
	return nil
}

func runTestRumble(pad *joybus.Client) error {
	rumble := accessory.NewRumblePak(pad)
	present, err := rumble.CheckPak()
	if err != nil {
		return fmt.Errorf("rumble test: %w", err)
	}
	slog.Info("rumble pak present", "present", present)
	if !present {
		return nil
	}

	if err := rumble.SetRumble(true); err != nil {
		return fmt.Errorf("rumble test: %w", err)
	}
	if err := rumble.SetRumble(false); err != nil {
		return fmt.Errorf("rumble test: %w", err)
	}
	return nil
}

func runTestTransfer(pad *joybus.Client) error {
	pak := transferpak.New(pad)
	present, err := pak.CheckPak()
	if err != nil {
		return fmt.Errorf("transfer test: %w", err)
	}
	slog.Info("transfer pak present", "present", present)
	if !present {
		return nil
	}

	if err := pak.CartEnable(true); err != nil {
		return fmt.Errorf("transfer test: %w", err)
	}
	defer pak.CartEnable(false)

	cartPresent, err := pak.CartPresent()
	if err != nil {
		return fmt.Errorf("transfer test: %w", err)
	}
	slog.Info("cartridge present", "present", cartPresent)
	if !cartPresent {
		return nil
	}

	ok, err := pak.LoadHeader(true)
	if err != nil {
		return fmt.Errorf("transfer test: %w", err)
	}
	if !ok {
		return errors.New("transfer test: cartridge header failed verification")
	}

	h := pak.Header()
	slog.Info("cartridge header",
		"title", h.Title,
		"mbc", h.MBCType().String(),
		"rom_size", h.ROMSize(),
		"ram_size", h.RAMSize(),
	)
	return nil
}

func runDumpTPakROM(pad *joybus.Client, path string) error {
	pak, err := loadedTransferPak(pad)
	if err != nil {
		return err
	}

	if err := dump.PreflightROM(pak); err != nil {
		if errors.Is(err, dump.ErrAborted) {
			slog.Warn("rom dump aborted", "reason", err)
			return nil
		}
		return fmt.Errorf("dump tpak rom: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump tpak rom: %w", err)
	}
	defer f.Close()

	total := 0
	progress := func(done uint64) {
		if int(done)-total >= 0x4000 {
			total = int(done)
			slog.Info("rom dump progress", "bytes", done)
		}
	}

	if err := dump.ROM(pak, f, progress); err != nil {
		if errors.Is(err, dump.ErrAborted) {
			slog.Warn("rom dump aborted", "reason", err)
			return nil
		}
		return fmt.Errorf("dump tpak rom: %w", err)
	}
	slog.Info("rom dump complete", "path", path)
	return nil
}

func runDumpTPakRAM(pad *joybus.Client, path string) error {
	pak, err := loadedTransferPak(pad)
	if err != nil {
		return err
	}

	if err := dump.PreflightRAM(pak); err != nil {
		if errors.Is(err, dump.ErrAborted) {
			slog.Warn("ram dump aborted", "reason", err)
			return nil
		}
		return fmt.Errorf("dump tpak ram: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump tpak ram: %w", err)
	}
	defer f.Close()

	if err := dump.RAM(pak, f, nil); err != nil {
		if errors.Is(err, dump.ErrAborted) {
			slog.Warn("ram dump aborted", "reason", err)
			return nil
		}
		return fmt.Errorf("dump tpak ram: %w", err)
	}
	slog.Info("ram dump complete", "path", path)
	return nil
}

// loadedTransferPak identifies the Transfer Pak, powers the cart on, and
// loads+verifies its header, leaving the pak ready for a dump pipeline (dump
// pipelines own disabling cart power again at the end of their run). On any
// failure it disables cart power before returning, best-effort.
func loadedTransferPak(pad *joybus.Client) (pak *transferpak.Pak, err error) {
	pak = transferpak.New(pad)
	present, err := pak.CheckPak()
	if err != nil {
		return nil, fmt.Errorf("transfer pak: %w", err)
	}
	if !present {
		return nil, errors.New("transfer pak: not detected")
	}

	if err := pak.CartEnable(true); err != nil {
		return nil, fmt.Errorf("transfer pak: %w", err)
	}

	ok, err := pak.LoadHeader(true)
	if err != nil {
		pak.CartEnable(false)
		return nil, fmt.Errorf("transfer pak: %w", err)
	}
	if !ok {
		pak.CartEnable(false)
		return nil, errors.New("transfer pak: cartridge header failed verification")
	}

	return pak, nil
}
