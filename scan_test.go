package i2cctl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/csr"
	"github.com/mklimuk/i2cctl/sim"
)

type writerFunc func(ctx context.Context, addr i2cctl.Address, buf []byte) error

func (f writerFunc) MasterWrite(ctx context.Context, addr i2cctl.Address, buf []byte) error {
	return f(ctx, addr, buf)
}

func TestAddressReserved(t *testing.T) {
	tests := []struct {
		addr     i2cctl.Address
		reserved bool
	}{
		{0x00, true},
		{0x07, true},
		{0x08, false},
		{0x50, false},
		{0x77, false},
		{0x78, true},
		{0x7F, true},
		{0x80, false},
		{0x3FF, false},
	}
	for _, test := range tests {
		t.Run(test.addr.String(), func(t *testing.T) {
			assert.Equal(t, test.reserved, test.addr.Reserved())
		})
	}
}

func TestScan_Simulated(t *testing.T) {
	p := sim.New([]*sim.Device{
		sim.NewDevice(0x20, 4),
		sim.NewDevice(0x50, 4),
		sim.NewDevice(0x150, 4),
	})
	c := csr.New(p, sim.NewInterrupts())

	found, err := i2cctl.Scan(context.Background(), c, 0x00, 0x7F)
	require.NoError(t, err)
	assert.Equal(t, []i2cctl.Address{0x20, 0x50}, found)

	found, err = i2cctl.Scan(context.Background(), c, 0x100, 0x1FF)
	require.NoError(t, err)
	assert.Equal(t, []i2cctl.Address{0x150}, found)
}

func TestScan_SkipsReservedAndIdle(t *testing.T) {
	var probed []i2cctl.Address
	w := writerFunc(func(_ context.Context, addr i2cctl.Address, buf []byte) error {
		assert.Empty(t, buf)
		probed = append(probed, addr)
		switch addr {
		case 0x08:
			return nil
		case 0x09:
			return i2cctl.NewStatusError(0x80)
		default:
			return i2cctl.NewStatusError(0xC0)
		}
	})
	found, err := i2cctl.Scan(context.Background(), w, 0x00, 0x0A)
	require.NoError(t, err)
	assert.Equal(t, []i2cctl.Address{0x08}, found)
	assert.Equal(t, []i2cctl.Address{0x08, 0x09, 0x0A}, probed)
}

func TestScan_StopsOnTransportError(t *testing.T) {
	boom := errors.New("usb disconnected")
	w := writerFunc(func(_ context.Context, addr i2cctl.Address, _ []byte) error {
		if addr == 0x30 {
			return boom
		}
		if addr == 0x10 {
			return nil
		}
		return i2cctl.NewStatusError(0xC0)
	})
	found, err := i2cctl.Scan(context.Background(), w, 0x08, 0x77)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []i2cctl.Address{0x10}, found)
}

func TestScan_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	w := writerFunc(func(context.Context, i2cctl.Address, []byte) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})
	found, err := i2cctl.Scan(ctx, w, 0x08, 0x77)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, found, 3)
}

func TestScan_Range(t *testing.T) {
	_, err := i2cctl.Scan(context.Background(), writerFunc(nil), 0x00, 0x400)
	assert.ErrorIs(t, err, i2cctl.ErrAddressRange)
}
