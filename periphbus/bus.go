// Package periphbus bridges i2cctl controllers and periph.io I2C buses in
// both directions.
package periphbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/i2cctl"
)

var _ i2cctl.Controller = &Controller{}

// Controller runs i2cctl transactions on a periph bus, usually a Linux
// i2c-dev adapter.
type Controller struct {
	bus i2c.Bus
}

func New(bus i2c.Bus) *Controller {
	return &Controller{bus: bus}
}

// ClosingController owns the bus it was opened with.
type ClosingController struct {
	*Controller
	closer i2c.BusCloser
}

func (c *ClosingController) Close() error {
	return c.closer.Close()
}

// Open initializes the host drivers and opens the named bus ("" picks the
// first one available).
func Open(dev string) (*ClosingController, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periphbus: could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("periphbus: could not open i2c bus: %w", err)
	}
	return &ClosingController{Controller: New(bus), closer: bus}, nil
}

func (c *Controller) MasterWrite(_ context.Context, addr i2cctl.Address, buf []byte) error {
	if !addr.Valid() {
		return fmt.Errorf("periphbus: write: %w", i2cctl.ErrAddressRange)
	}
	if err := c.bus.Tx(uint16(addr), buf, nil); err != nil {
		return fmt.Errorf("periphbus: could not write to %s: %w", addr, classify(err))
	}
	return nil
}

func (c *Controller) MasterRead(_ context.Context, addr i2cctl.Address, sub byte, buf []byte) error {
	if !addr.Valid() {
		return fmt.Errorf("periphbus: read: %w", i2cctl.ErrAddressRange)
	}
	if err := c.bus.Tx(uint16(addr), []byte{sub}, buf); err != nil {
		return fmt.Errorf("periphbus: could not read from %s: %w", addr, classify(err))
	}
	return nil
}

// RegisterSlave is not available on i2c-dev.
func (c *Controller) RegisterSlave(byte) (<-chan i2cctl.SlaveEvent, error) {
	return nil, fmt.Errorf("periphbus: slave mode: %w", i2cctl.ErrUnsupported)
}

// classify maps the kernel's NACK report onto the i2cctl status model.
func classify(err error) error {
	if errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENXIO) {
		return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindNoAck}, Err: err}
	}
	return err
}
