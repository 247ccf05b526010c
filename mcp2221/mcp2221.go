// Package mcp2221 drives I2C transactions through a Microchip MCP2221 USB-HID
// bridge. The bridge only speaks 7-bit addressing and cannot act as a slave.
package mcp2221

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/ctxflag"
)

const (
	frameSize = 64
	// MaxTransfer is the payload that fits a single report.
	MaxTransfer = 60

	cmdStatus          = 0x10
	cmdI2CWrite        = 0x90
	cmdI2CReadRepStart = 0x93
	cmdI2CWriteNoStop  = 0x94
	cmdI2CGetData      = 0x40

	stateIdle          = 0x00
	stateAddrNack      = 0x25
	stateWritingNoStop = 0x45
	statePartialData   = 0x41
	stateReadError     = 0x7F

	defaultRetries = 50
)

var _ i2cctl.Controller = &Adapter{}

type Status struct {
	I2CState               byte   `yaml:"i2c_state"`
	I2CDataBufferCounter   int    `yaml:"data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"speed_divider"`
	I2CTimeout             int    `yaml:"timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent"`
	ReadPending            int    `yaml:"read_pending"`
}

type Option func(*Adapter)

// WithResponseWait sets the pause between a request and reading its response.
func WithResponseWait(d time.Duration) Option {
	return func(a *Adapter) {
		a.responseWait = d
	}
}

func WithOpener(o Opener) Option {
	return func(a *Adapter) {
		a.open = o
	}
}

func WithRetries(n int) Option {
	return func(a *Adapter) {
		a.retries = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.log = l
	}
}

type Adapter struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	retries      int
	open         Opener
	log          *slog.Logger
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		request:      make([]byte, frameSize),
		response:     make([]byte, frameSize),
		responseWait: 50 * time.Millisecond,
		retries:      defaultRetries,
		open:         OpenHID,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "mcp2221")
	return a
}

func checkAddress(addr i2cctl.Address) error {
	if !addr.Valid() {
		return i2cctl.ErrAddressRange
	}
	if addr.TenBit() {
		return fmt.Errorf("10-bit address %s: %w", addr, i2cctl.ErrUnsupported)
	}
	return nil
}

// MasterWrite sends buf to addr followed by a STOP.
func (a *Adapter) MasterWrite(ctx context.Context, addr i2cctl.Address, buf []byte) error {
	if err := checkAddress(addr); err != nil {
		return fmt.Errorf("mcp2221: write: %w", err)
	}
	if len(buf) > MaxTransfer {
		return fmt.Errorf("mcp2221: write of %d bytes exceeds %d", len(buf), MaxTransfer)
	}
	a.mx.Lock()
	defer a.mx.Unlock()
	if err := a.write(ctx, cmdI2CWrite, addr, buf); err != nil {
		return fmt.Errorf("mcp2221: write to %s: %w", addr, err)
	}
	return nil
}

// MasterRead writes sub without a STOP and reads len(buf) bytes after a
// repeated start.
func (a *Adapter) MasterRead(ctx context.Context, addr i2cctl.Address, sub byte, buf []byte) error {
	if err := checkAddress(addr); err != nil {
		return fmt.Errorf("mcp2221: read: %w", err)
	}
	if len(buf) > MaxTransfer {
		return fmt.Errorf("mcp2221: read of %d bytes exceeds %d", len(buf), MaxTransfer)
	}
	a.mx.Lock()
	defer a.mx.Unlock()
	if len(buf) == 0 {
		if err := a.write(ctx, cmdI2CWrite, addr, []byte{sub}); err != nil {
			return fmt.Errorf("mcp2221: read from %s: %w", addr, err)
		}
		return nil
	}
	if err := a.write(ctx, cmdI2CWriteNoStop, addr, []byte{sub}); err != nil {
		return fmt.Errorf("mcp2221: read from %s: %w", addr, err)
	}
	if err := a.read(ctx, cmdI2CReadRepStart, addr, buf); err != nil {
		return fmt.Errorf("mcp2221: read from %s: %w", addr, err)
	}
	return nil
}

// RegisterSlave is not supported by the bridge.
func (a *Adapter) RegisterSlave(byte) (<-chan i2cctl.SlaveEvent, error) {
	return nil, fmt.Errorf("mcp2221: slave mode: %w", i2cctl.ErrUnsupported)
}

func (a *Adapter) write(ctx context.Context, cmd byte, addr i2cctl.Address, buf []byte) error {
	a.resetBuffers()
	a.request[0] = cmd
	binary.LittleEndian.PutUint16(a.request[1:3], uint16(len(buf)))
	a.request[3] = byte(addr) << 1
	copy(a.request[4:], buf)
	if err := a.send(ctx); err != nil {
		return err
	}
	// write could not be performed
	if a.response[1] == 0x01 {
		a.log.Debug("adapter busy")
		return i2cctl.ErrBusBusy
	}
	return a.settle(ctx, cmd == cmdI2CWriteNoStop)
}

// settle polls the engine state until the transfer is done.
func (a *Adapter) settle(ctx context.Context, noStop bool) error {
	var state byte
	for i := 0; i < a.retries; i++ {
		st, err := a.status(ctx, false)
		if err != nil {
			return err
		}
		state = st.I2CState
		switch {
		case state == stateIdle:
			return nil
		case noStop && state == stateWritingNoStop:
			return nil
		case state == stateAddrNack:
			return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindNoAck, Raw: state}}
		}
		if err := ctx.Err(); err != nil {
			return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindStuck, Raw: state}, Err: err}
		}
	}
	return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindStuck, Raw: state}}
}

func (a *Adapter) read(ctx context.Context, cmd byte, addr i2cctl.Address, buf []byte) error {
	a.resetBuffers()
	a.request[0] = cmd
	binary.LittleEndian.PutUint16(a.request[1:3], uint16(len(buf)))
	a.request[3] = byte(addr)<<1 + 1
	if err := a.send(ctx); err != nil {
		return err
	}
	if a.response[1] == 0x01 {
		return i2cctl.ErrBusBusy
	}
	for i := 0; i < a.retries; i++ {
		a.resetBuffers()
		a.request[0] = cmdI2CGetData
		if err := a.send(ctx); err != nil {
			return fmt.Errorf("error getting read data from adapter: %w", err)
		}
		if a.response[2] == stateAddrNack {
			return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindNoAck, Raw: a.response[2]}}
		}
		if a.response[1] == statePartialData || a.response[3] == stateReadError {
			if err := ctx.Err(); err != nil {
				return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindStuck, Raw: a.response[2]}, Err: err}
			}
			continue
		}
		if int(a.response[3]) != len(buf) {
			return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buf), a.response[3])
		}
		copy(buf, a.response[4:])
		return nil
	}
	return &i2cctl.StatusError{Status: i2cctl.Status{Kind: i2cctl.KindStuck, Raw: a.response[2]}}
}

// Status reads the bridge status report.
func (a *Adapter) Status(ctx context.Context) (*Status, error) {
	a.mx.Lock()
	defer a.mx.Unlock()
	return a.status(ctx, false)
}

// ReleaseBus cancels the transfer in progress, freeing a bus left hanging by
// an interrupted transaction.
func (a *Adapter) ReleaseBus(ctx context.Context) (*Status, error) {
	a.mx.Lock()
	defer a.mx.Unlock()
	return a.status(ctx, true)
}

func (a *Adapter) status(ctx context.Context, cancel bool) (*Status, error) {
	a.resetBuffers()
	a.request[0] = cmdStatus
	if cancel {
		a.request[2] = 0x10
	}
	if err := a.send(ctx); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(a.response), nil
}

func bufferToStatus(buffer []byte) *Status {
	/*
		8: I2C engine state
		9-10: requested I2C transfer length (LE)
		11-12: already transferred number of bytes (LE)
		13: internal I2C data buffer counter
		14: current I2C communication speed divider value
		15: current I2C timeout value
		16-17: I2C address being used
		25: read pending
	*/
	status := &Status{
		I2CState:             buffer[8],
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (a *Adapter) send(ctx context.Context) error {
	dev, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			a.log.Warn("could not close device", "error", err)
		}
	}()
	verbose := ctxflag.IsVerbose(ctx)
	if verbose {
		a.log.Info("sending message to adapter", "frame", "\n"+hex.Dump(a.request))
	}
	n, err := dev.Write(a.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != frameSize {
		return fmt.Errorf("short write: %d", n)
	}
	if a.responseWait > 0 {
		time.Sleep(a.responseWait)
	}
	n, err = dev.Read(a.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != frameSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		a.log.Info("read message from adapter", "frame", "\n"+hex.Dump(a.response))
	}
	return nil
}

func (a *Adapter) resetBuffers() {
	clear(a.request)
	clear(a.response)
}
