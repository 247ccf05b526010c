package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
)

// session opens the configured backend for one command. Bounded sessions
// are cancelled after the configured timeout.
func session(c *cli.Context, bounded bool, run func(ctx context.Context, b *backend) error) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return console.Exit(1, "configuration error: %s", console.Red(err))
	}
	b, err := openBackend(cfg)
	if err != nil {
		return console.Exit(1, "could not open %s backend: %s", cfg.Backend, console.Red(err))
	}
	defer func() { _ = b.Close() }()
	ctx := withFlags(c.Context, cfg, c.Bool("verbose"))
	if bounded && cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return run(ctx, b)
}

var writeCmd = cli.Command{
	Name:      "write",
	Usage:     "write bytes to a device",
	ArgsUsage: "ADDRESS HEX...",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "pec", Usage: "append the SMBus packet error code"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return console.Exit(1, "expected an address and data, got %d arguments", c.NArg())
		}
		addr, err := parseAddress(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		data, err := parseHex(c.Args().Tail()...)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if c.Bool("pec") {
			data, err = i2cctl.AppendPEC(addr, data)
			if err != nil {
				return console.Exit(1, "could not compute PEC: %s", console.Red(err))
			}
		}
		if !c.Bool("yes") {
			console.Printf("%s", hex.Dump(data))
			answer, err := console.YesOrNo(fmt.Sprintf("write %d bytes to %s?", len(data), addr))
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		return session(c, true, func(ctx context.Context, b *backend) error {
			if err := b.ctrl.MasterWrite(ctx, addr, data); err != nil {
				return console.Exit(2, "write to %s failed: %s", addr, console.Red(describe(err)))
			}
			console.Infof("wrote %s bytes to %s", console.White(len(data)), console.White(addr))
			return nil
		})
	},
}

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "read bytes from a device register",
	ArgsUsage: "ADDRESS SUBADDRESS LENGTH",
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return console.Exit(1, "expected 3 arguments, got %d", c.NArg())
		}
		addr, err := parseAddress(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		sub, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		length, err := parseByte(c.Args().Get(2))
		if err != nil {
			return console.Exit(1, "invalid length: %s", console.Red(err))
		}
		return session(c, true, func(ctx context.Context, b *backend) error {
			buf := make([]byte, length)
			if err := b.ctrl.MasterRead(ctx, addr, sub, buf); err != nil {
				return console.Exit(2, "read from %s failed: %s", addr, console.Red(describe(err)))
			}
			console.Printf("%s", hex.Dump(buf))
			return nil
		})
	},
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe addresses with empty writes",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "from", Value: "0x08"},
		&cli.StringFlag{Name: "to", Value: "0x77"},
		&cli.BoolFlag{Name: "ten-bit", Usage: "scan the whole 10-bit range"},
	},
	Action: func(c *cli.Context) error {
		from, err := parseAddress(c.String("from"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		to, err := parseAddress(c.String("to"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if c.Bool("ten-bit") {
			from, to = 0x80, i2cctl.MaxAddress
		}
		return session(c, true, func(ctx context.Context, b *backend) error {
			found, err := i2cctl.Scan(ctx, b.ctrl, from, to)
			if err != nil {
				return console.Exit(2, "scan failed: %s", console.Red(describe(err)))
			}
			if len(found) == 0 {
				console.PInfof(console.PictoGhost, "no device answered in %s-%s", from, to)
				return nil
			}
			w := tabwriter.NewWriter(console.Output(), 12, 0, 1, ' ', 0)
			_, _ = fmt.Fprintf(w, "%s\t%s\n", console.Bold("ADDRESS"), console.Bold("MODE"))
			for _, addr := range found {
				mode := "7-bit"
				if addr.TenBit() {
					mode = "10-bit"
				}
				_, _ = fmt.Fprintf(w, "%#03x\t%s\n", uint16(addr), mode)
			}
			return w.Flush()
		})
	},
}

var slaveCmd = cli.Command{
	Name:      "slave",
	Usage:     "answer as a slave device and print bus events",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "reply", Usage: "byte loaded for master reads", Value: "0x00"},
		&cli.StringFlag{Name: "inject", Usage: "hex bytes an emulated master writes (sim backend)"},
		&cli.IntFlag{Name: "count", Usage: "stop after this many events, 0 runs until interrupted"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		addr, err := parseByte(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		reply, err := parseByte(c.String("reply"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		var inject []byte
		if c.IsSet("inject") {
			if inject, err = parseHex(c.String("inject")); err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
		}
		return session(c, false, func(ctx context.Context, b *backend) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			events, err := b.ctrl.RegisterSlave(addr)
			if err != nil {
				return console.Exit(2, "could not register slave: %s", console.Red(err))
			}
			if releaser, ok := b.ctrl.(interface{ ReleaseSlave() error }); ok {
				defer func() { _ = releaser.ReleaseSlave() }()
			}
			replier, canReply := b.ctrl.(interface{ SlaveReply(byte) })
			if canReply {
				replier.SlaveReply(reply)
			}
			console.PInfof(console.PictoPin, "listening on %#02x", addr)
			if b.sim != nil && len(inject) > 0 {
				go func() {
					b.sim.InjectSlaveWrite(addr, inject...)
					b.sim.InjectSlaveRead(addr)
				}()
			}
			count := c.Int("count")
			for seen := 0; count == 0 || seen < count; {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					printEvent(ev)
					seen++
					if canReply && ev.Flags.Has(i2cctl.SlaveDataReq) {
						replier.SlaveReply(reply)
					}
				}
			}
			return nil
		})
	},
}

func printEvent(ev i2cctl.SlaveEvent) {
	if ev.Flags.Has(i2cctl.SlaveDataReady) {
		console.Printf("%s data %s\n", console.Green(ev.Flags), console.White(fmt.Sprintf("%#02x", ev.Data)))
		return
	}
	console.Printf("%s\n", console.Yellow(ev.Flags))
}
