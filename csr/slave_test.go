package csr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/csr"
	"github.com/mklimuk/i2cctl/sim"
)

func drain(events <-chan i2cctl.SlaveEvent) []i2cctl.SlaveEvent {
	var out []i2cctl.SlaveEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestRegisterSlave(t *testing.T) {
	c, p, irq := newBus(nil)

	events, err := c.RegisterSlave(0x42)
	require.NoError(t, err)
	require.NotNil(t, events)

	assert.Equal(t, []byte{0x01, 0x82}, p.CSRWrites())
	assert.Equal(t, []byte{0x42}, p.DataWrites())
	assert.True(t, irq.Attached(csr.DefaultIRQIndex))
	assert.True(t, irq.Enabled())
	on, addr := p.SlaveEnabled()
	assert.True(t, on)
	assert.Equal(t, byte(0x42), addr)
}

func TestRegisterSlave_Errors(t *testing.T) {
	p := sim.New(nil)
	c := csr.New(p, sim.NewInterrupts())
	_, err := c.RegisterSlave(0x42)
	assert.ErrorIs(t, err, i2cctl.ErrUnsupported)
	assert.ErrorIs(t, c.ReleaseSlave(), i2cctl.ErrUnsupported)

	c, p, _ = newBus(nil)
	_, err = c.RegisterSlave(0x80)
	assert.ErrorIs(t, err, i2cctl.ErrAddressRange)
	assert.Empty(t, p.Trace())
}

func TestSlave_ReceivesWrites(t *testing.T) {
	c, p, _ := newBus(nil)
	events, err := c.RegisterSlave(0x42)
	require.NoError(t, err)

	assert.False(t, p.InjectSlaveWrite(0x43, 0x01), "other address")
	require.True(t, p.InjectSlaveWrite(0x42, 0x10, 0x20, 0x30))

	got := drain(events)
	require.Len(t, got, 3)
	for i, ev := range got {
		assert.True(t, ev.Flags.Has(i2cctl.SlaveAddrMatch))
		assert.True(t, ev.Flags.Has(i2cctl.SlaveDataReady))
		assert.False(t, ev.Flags.Has(i2cctl.SlaveDataReq))
		assert.Equal(t, byte(0x10*(i+1)), ev.Data)
	}
}

func TestSlave_ReadRequestAndReply(t *testing.T) {
	c, p, _ := newBus(nil)
	events, err := c.RegisterSlave(0x42)
	require.NoError(t, err)

	require.True(t, p.InjectSlaveRead(0x42))
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, i2cctl.SlaveAddrMatch|i2cctl.SlaveDataReq, got[0].Flags)
	assert.Zero(t, got[0].Data)

	c.SlaveReply(0x5A)
	assert.Equal(t, byte(0x5A), p.Latch())
}

func TestSlave_EventsDeferredWhileInterruptsDisabled(t *testing.T) {
	c, p, irq := newBus(nil)
	events, err := c.RegisterSlave(0x42)
	require.NoError(t, err)

	irq.Disable()
	require.True(t, p.InjectSlaveWrite(0x42, 0x99))
	assert.Empty(t, drain(events))
	irq.Enable()

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, byte(0x99), got[0].Data)
}

func TestSlave_DropsWhenChannelIsFull(t *testing.T) {
	irq := sim.NewInterrupts()
	p := sim.New(nil, sim.WithInterrupts(irq, 3))
	c := csr.New(p, irq, csr.WithVectors(irq), csr.WithIRQIndex(3), csr.WithSlaveBuffer(1))

	events, err := c.RegisterSlave(0x10)
	require.NoError(t, err)
	require.True(t, p.InjectSlaveWrite(0x10, 0x01, 0x02, 0x03))

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, byte(0x01), got[0].Data)
	assert.Equal(t, uint64(2), c.Dropped())
}

func TestSlave_Release(t *testing.T) {
	c, p, irq := newBus(nil)
	events, err := c.RegisterSlave(0x42)
	require.NoError(t, err)

	require.NoError(t, c.ReleaseSlave())
	assert.False(t, irq.Attached(csr.DefaultIRQIndex))
	on, _ := p.SlaveEnabled()
	assert.False(t, on)
	_, ok := <-events
	assert.False(t, ok, "channel closed")
	assert.False(t, p.InjectSlaveWrite(0x42, 0x01))
}

func TestSlave_RegisterAgainReplacesChannel(t *testing.T) {
	c, p, _ := newBus(nil)
	first, err := c.RegisterSlave(0x42)
	require.NoError(t, err)
	second, err := c.RegisterSlave(0x43)
	require.NoError(t, err)

	_, ok := <-first
	assert.False(t, ok)
	assert.False(t, p.InjectSlaveWrite(0x42, 0x01))
	require.True(t, p.InjectSlaveWrite(0x43, 0x02))
	got := drain(second)
	require.Len(t, got, 1)
	assert.Equal(t, byte(0x02), got[0].Data)
}

func TestSlave_MasterTransactionAfterSlaveMode(t *testing.T) {
	dev := sim.NewDevice(0x50, 8)
	c, p, _ := newBus([]*sim.Device{dev})
	_, err := c.RegisterSlave(0x42)
	require.NoError(t, err)

	require.NoError(t, c.ReleaseSlave())
	p.ResetTrace()
	require.NoError(t, c.MasterWrite(context.Background(), 0x50, []byte{0x00, 0x07}))
	assert.Equal(t, byte(0x07), dev.Memory[0])
}
