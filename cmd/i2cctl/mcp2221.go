package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/mcp2221"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221DetectCmd,
	},
}

func bridgeContext(c *cli.Context) (context.Context, *mcp2221.Adapter, error) {
	cfg, err := configFromContext(c)
	if err != nil {
		return nil, nil, err
	}
	return withFlags(c.Context, cfg, c.Bool("verbose")), newMCP2221(cfg), nil
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Output())
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the bridge status report",
	Action: func(c *cli.Context) error {
		ctx, a, err := bridgeContext(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the transfer in progress and free the bus",
	Action: func(c *cli.Context) error {
		ctx, a, err := bridgeContext(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221DetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list attached bridges",
	Action: func(c *cli.Context) error {
		infos := mcp2221.Detect()
		if len(infos) == 0 {
			console.PInfof(console.PictoGhost, "no %s device attached", console.White(fmt.Sprintf("%04x:%04x", mcp2221.VendorID, mcp2221.ProductID)))
			return nil
		}
		return printYAML(infos)
	},
}
