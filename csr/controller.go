package csr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mklimuk/i2cctl"
)

const (
	DefaultIRQIndex    = 1
	DefaultDelayCycles = 2
	DefaultSlaveBuffer = 16
)

var _ i2cctl.Controller = &Controller{}

type Config struct {
	Delay       Delayer
	DelayCycles int
	Vectors     Vectors
	IRQIndex    int
	SlaveBuffer int
	Logger      *slog.Logger
}

type Option func(*Config)

func WithDelay(d Delayer, cycles int) Option {
	return func(c *Config) {
		c.Delay = d
		c.DelayCycles = cycles
	}
}

// WithVectors enables slave mode by giving the controller access to the
// interrupt vector table.
func WithVectors(v Vectors) Option {
	return func(c *Config) {
		c.Vectors = v
	}
}

func WithIRQIndex(index int) Option {
	return func(c *Config) {
		c.IRQIndex = index
	}
}

func WithSlaveBuffer(size int) Option {
	return func(c *Config) {
		c.SlaveBuffer = size
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Controller drives the CSR based I2C peripheral. It exclusively owns the
// register file: every transaction holds the mutex and runs with the global
// interrupt flag cleared.
type Controller struct {
	mx     sync.Mutex
	regs   RegisterFile
	irq    Interrupts
	config Config
	log    *slog.Logger

	slaveMx sync.Mutex
	events  chan i2cctl.SlaveEvent
	dropped atomic.Uint64
}

func New(regs RegisterFile, irq Interrupts, opts ...Option) *Controller {
	config := Config{
		Delay:       NoDelay,
		DelayCycles: DefaultDelayCycles,
		IRQIndex:    DefaultIRQIndex,
		SlaveBuffer: DefaultSlaveBuffer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if irq == nil {
		irq = NoInterrupts{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		regs:   regs,
		irq:    irq,
		config: config,
		log:    logger.With("component", "csr"),
	}
}

func (c *Controller) begin() {
	c.mx.Lock()
	c.irq.Disable()
}

func (c *Controller) end() {
	c.irq.Enable()
	c.mx.Unlock()
}

func (c *Controller) pause() {
	c.config.Delay.Delay(c.config.DelayCycles)
}

// poll spins on the CSR until any bit of mask is set and returns the
// matching snapshot. It only gives up when ctx is done.
func (c *Controller) poll(ctx context.Context, mask byte) (byte, error) {
	for {
		t := c.regs.ReadCSR()
		c.pause()
		if t&mask != 0 {
			return t, nil
		}
		if err := ctx.Err(); err != nil {
			return t, &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindStuck, Raw: t}, Err: err}
		}
	}
}

// wait blocks until the peripheral requests the next data byte or the bus
// goes idle. An idle bus or a NACK ends the transaction with the raw status.
func (c *Controller) wait(ctx context.Context) error {
	t, err := c.poll(ctx, MasterDataReq|MasterIdle)
	if err != nil {
		return err
	}
	return checkStatus(t)
}

func checkStatus(t byte) error {
	if t&(MasterIdle|MasterNoAck) != 0 {
		return i2cctl.NewStatusError(t)
	}
	return nil
}

func (c *Controller) finish(op string, addr i2cctl.Address, err error) error {
	if err != nil {
		st := i2cctl.StatusOf(err)
		c.log.Debug("transaction aborted", "op", op, "addr", addr, "kind", st.Kind, "status", fmt.Sprintf("%#02x", st.Raw))
	}
	return err
}

// Dropped returns how many slave events did not fit the event channel.
func (c *Controller) Dropped() uint64 {
	return c.dropped.Load()
}
