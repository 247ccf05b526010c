package periphbus

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2cctl"
)

var _ i2c.Bus = &Bus{}

// Bus exposes an i2cctl.Controller as a periph i2c.Bus so periph device
// drivers can run on top of it. Only the transaction shapes the controller
// knows are accepted: a plain write, or a one byte write followed by a read.
type Bus struct {
	ctx  context.Context
	c    i2cctl.Controller
	name string
}

func NewBus(ctx context.Context, c i2cctl.Controller, name string) *Bus {
	return &Bus{ctx: ctx, c: c, name: name}
}

func (b *Bus) String() string {
	return b.name
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(r) == 0:
		return b.c.MasterWrite(b.ctx, i2cctl.Address(addr), w)
	case len(w) == 1:
		return b.c.MasterRead(b.ctx, i2cctl.Address(addr), w[0], r)
	default:
		return fmt.Errorf("periphbus: %d byte write before read: %w", len(w), i2cctl.ErrUnsupported)
	}
}

func (b *Bus) SetSpeed(f physic.Frequency) error {
	return fmt.Errorf("periphbus: set speed %s: %w", f, i2cctl.ErrUnsupported)
}
