package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "i2cctl"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "I2C bus controller cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable verbose logging and frame dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration file",
			EnvVars: []string{"I2CCTL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "bus backend: sim, devmem, periph, nanopi or mcp2221",
			Value:   backendSim,
			EnvVars: []string{"I2CCTL_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "scenario",
			Usage:   "simulated bus description (sim backend)",
			EnvVars: []string{"I2CCTL_SCENARIO"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "transaction timeout",
			Value: 5 * time.Second,
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "bus name (periph backend)",
		},
		&cli.IntFlag{
			Name:  "bus",
			Usage: "bus number (nanopi backend)",
		},
		&cli.IntFlag{
			Name:  "mcp2221-id",
			Usage: "bridge index when several are attached",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&writeCmd,
		&readCmd,
		&scanCmd,
		&slaveCmd,
		&mcp2221Cmd,
	}
	return app
}

func run(args []string) int {
	err := newApp().Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}
