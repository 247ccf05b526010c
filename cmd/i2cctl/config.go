package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cctl/devmem"
)

const (
	backendSim     = "sim"
	backendDevmem  = "devmem"
	backendPeriph  = "periph"
	backendNanoPi  = "nanopi"
	backendMCP2221 = "mcp2221"
)

// Config selects and parameterizes the bus backend. It is read from the
// --config file; command line flags override it.
type Config struct {
	Backend  string        `yaml:"backend"`
	Timeout  time.Duration `yaml:"timeout"`
	Scenario string        `yaml:"scenario"`
	Periph   PeriphConfig  `yaml:"periph"`
	NanoPi   NanoPiConfig  `yaml:"nanopi"`
	Devmem   DevmemConfig  `yaml:"devmem"`
	MCP2221  MCP2221Config `yaml:"mcp2221"`
}

type PeriphConfig struct {
	Device string `yaml:"device"`
}

type NanoPiConfig struct {
	Bus *int `yaml:"bus"`
}

type DevmemConfig struct {
	Path          string `yaml:"path"`
	devmem.Layout `yaml:",inline"`
	// Delay is the pause per delay cycle after register accesses.
	Delay time.Duration `yaml:"delay"`
}

type MCP2221Config struct {
	ResponseWait time.Duration `yaml:"response_wait"`
	Device       *int          `yaml:"device"`
}

func defaultConfig() *Config {
	return &Config{
		Backend: backendSim,
		Timeout: 5 * time.Second,
		Devmem:  DevmemConfig{Path: devmem.DefaultPath, Layout: devmem.Layout{Data: 4}},
		MCP2221: MCP2221Config{ResponseWait: 50 * time.Millisecond},
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// an empty file keeps the defaults
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not decode config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	switch cfg.Backend {
	case backendSim, backendDevmem, backendPeriph, backendNanoPi, backendMCP2221:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// configFromContext loads the config file and applies global flag overrides.
func configFromContext(c *cli.Context) (*Config, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("scenario") {
		cfg.Scenario = c.String("scenario")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("device") {
		cfg.Periph.Device = c.String("device")
	}
	if c.IsSet("bus") {
		bus := c.Int("bus")
		cfg.NanoPi.Bus = &bus
	}
	if c.IsSet("mcp2221-id") {
		id := c.Int("mcp2221-id")
		cfg.MCP2221.Device = &id
	}
	return cfg, cfg.validate()
}
