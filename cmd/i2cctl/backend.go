package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/csr"
	"github.com/mklimuk/i2cctl/ctxflag"
	"github.com/mklimuk/i2cctl/devmem"
	"github.com/mklimuk/i2cctl/gobotbus"
	"github.com/mklimuk/i2cctl/mcp2221"
	"github.com/mklimuk/i2cctl/periphbus"
	"github.com/mklimuk/i2cctl/sim"
)

type backend struct {
	ctrl i2cctl.Controller
	// sim is set for the simulator backend so commands can inject traffic.
	sim   *sim.Peripheral
	close func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func openBackend(cfg *Config) (*backend, error) {
	switch cfg.Backend {
	case backendSim:
		return openSim(cfg)
	case backendDevmem:
		w, err := devmem.Open(cfg.Devmem.Path, cfg.Devmem.Layout)
		if err != nil {
			return nil, err
		}
		opts := []csr.Option{csr.WithLogger(slog.Default())}
		if cfg.Devmem.Delay > 0 {
			opts = append(opts, csr.WithDelay(csr.BusyWait(cfg.Devmem.Delay), csr.DefaultDelayCycles))
		}
		return &backend{ctrl: csr.New(w, nil, opts...), close: w.Close}, nil
	case backendPeriph:
		c, err := periphbus.Open(cfg.Periph.Device)
		if err != nil {
			return nil, err
		}
		return &backend{ctrl: c, close: c.Close}, nil
	case backendNanoPi:
		var opts []gobotbus.Option
		if cfg.NanoPi.Bus != nil {
			opts = append(opts, gobotbus.WithBus(*cfg.NanoPi.Bus))
		}
		c, err := gobotbus.NewNanoPi(opts...)
		if err != nil {
			return nil, err
		}
		return &backend{ctrl: c, close: c.Close}, nil
	case backendMCP2221:
		return &backend{ctrl: newMCP2221(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openSim(cfg *Config) (*backend, error) {
	scenario := &sim.Scenario{}
	if cfg.Scenario != "" {
		var err error
		scenario, err = sim.LoadScenarioFile(cfg.Scenario)
		if err != nil {
			return nil, err
		}
	}
	irq := sim.NewInterrupts()
	p, err := scenario.Build(irq)
	if err != nil {
		return nil, err
	}
	opts := []csr.Option{csr.WithVectors(irq), csr.WithLogger(slog.Default())}
	if scenario.IRQIndex != nil {
		opts = append(opts, csr.WithIRQIndex(*scenario.IRQIndex))
	}
	return &backend{ctrl: csr.New(p, irq, opts...), sim: p}, nil
}

func newMCP2221(cfg *Config) *mcp2221.Adapter {
	return mcp2221.New(mcp2221.WithResponseWait(cfg.MCP2221.ResponseWait), mcp2221.WithLogger(slog.Default()))
}

// withFlags decorates ctx with the per-call flags backends look at.
func withFlags(ctx context.Context, cfg *Config, verbose bool) context.Context {
	ctx = ctxflag.SetVerbose(ctx, verbose)
	if cfg.MCP2221.Device != nil {
		ctx = ctxflag.SetDevice(ctx, *cfg.MCP2221.Device)
	}
	return ctx
}
