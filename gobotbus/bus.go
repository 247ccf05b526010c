// Package gobotbus runs i2cctl transactions through a gobot I2C connector,
// such as the NanoPi platform adaptor.
package gobotbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"golang.org/x/sys/unix"

	"github.com/mklimuk/i2cctl"
)

var _ i2cctl.Controller = &Controller{}

type Option func(*Controller)

// WithBus selects the bus number instead of the connector's default one.
func WithBus(bus int) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

type Controller struct {
	mx        sync.Mutex
	connector i2c.Connector
	bus       int
	conns     map[i2cctl.Address]i2c.Connection
	finalize  func() error
}

func New(connector i2c.Connector, opts ...Option) *Controller {
	c := &Controller{
		connector: connector,
		bus:       connector.DefaultI2cBus(),
		conns:     make(map[i2cctl.Address]i2c.Connection),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewNanoPi connects the I2C adaptor of a NanoPi NEO board.
func NewNanoPi(opts ...Option) (*Controller, error) {
	npi := nanopi.NewNeoAdaptor()
	if err := npi.I2cBusAdaptor.Connect(); err != nil {
		return nil, fmt.Errorf("gobotbus: adaptor connect error: %w", err)
	}
	c := New(npi, opts...)
	c.finalize = npi.I2cBusAdaptor.Finalize
	return c, nil
}

func (c *Controller) connection(addr i2cctl.Address) (i2c.Connection, error) {
	if !addr.Valid() {
		return nil, i2cctl.ErrAddressRange
	}
	if addr.TenBit() {
		return nil, fmt.Errorf("10-bit address %s: %w", addr, i2cctl.ErrUnsupported)
	}
	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}
	conn, err := c.connector.GetI2cConnection(int(addr), c.bus)
	if err != nil {
		return nil, fmt.Errorf("could not get connection on bus %d: %w", c.bus, err)
	}
	c.conns[addr] = conn
	return conn, nil
}

// MasterWrite writes buf to addr. An empty buf is issued as a one byte read,
// the way i2cdetect probes, since the kernel does not put empty writes on
// the wire.
func (c *Controller) MasterWrite(_ context.Context, addr i2cctl.Address, buf []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	conn, err := c.connection(addr)
	if err != nil {
		return fmt.Errorf("gobotbus: write: %w", err)
	}
	if len(buf) == 0 {
		_, err = conn.ReadByte()
	} else {
		_, err = conn.Write(buf)
	}
	if err != nil {
		return fmt.Errorf("gobotbus: could not write to %s: %w", addr, classify(err))
	}
	return nil
}

func (c *Controller) MasterRead(_ context.Context, addr i2cctl.Address, sub byte, buf []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	conn, err := c.connection(addr)
	if err != nil {
		return fmt.Errorf("gobotbus: read: %w", err)
	}
	if len(buf) == 0 {
		err = conn.WriteByte(sub)
	} else {
		err = conn.ReadBlockData(sub, buf)
	}
	if err != nil {
		return fmt.Errorf("gobotbus: could not read from %s: %w", addr, classify(err))
	}
	return nil
}

func (c *Controller) RegisterSlave(byte) (<-chan i2cctl.SlaveEvent, error) {
	return nil, fmt.Errorf("gobotbus: slave mode: %w", i2cctl.ErrUnsupported)
}

// Close releases every connection and finalizes the adaptor when the
// controller created it.
func (c *Controller) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	var errs []error
	for addr, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
		delete(c.conns, addr)
	}
	if c.finalize != nil {
		if err := c.finalize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func classify(err error) error {
	if errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENXIO) {
		return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindNoAck}, Err: err}
	}
	return err
}
