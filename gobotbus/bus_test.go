package gobotbus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"golang.org/x/sys/unix"

	"github.com/mklimuk/i2cctl"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) GetI2cConnection(address int, bus int) (i2c.Connection, error) {
	args := m.Called(address, bus)
	conn, _ := args.Get(0).(i2c.Connection)
	return conn, args.Error(1)
}

func (m *mockConnector) DefaultI2cBus() int {
	return m.Called().Int(0)
}

// mockConnection overrides the operations the controller uses, the embedded
// interface stays nil.
type mockConnection struct {
	i2c.Connection
	mock.Mock
}

func (m *mockConnection) Write(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *mockConnection) ReadByte() (byte, error) {
	args := m.Called()
	return args.Get(0).(byte), args.Error(1)
}

func (m *mockConnection) WriteByte(b byte) error {
	return m.Called(b).Error(0)
}

func (m *mockConnection) ReadBlockData(reg uint8, b []byte) error {
	args := m.Called(reg, b)
	if fill, ok := args.Get(1).([]byte); ok {
		copy(b, fill)
	}
	return args.Error(0)
}

func (m *mockConnection) Close() error {
	return m.Called().Error(0)
}

func TestController(t *testing.T) {
	conn := &mockConnection{}
	conn.On("Write", []byte{0x00, 0x01}).Return(2, nil).Once()
	conn.On("ReadBlockData", uint8(0x10), mock.Anything).Return(nil, []byte{0x11, 0x22, 0x33, 0x44}).Once()
	conn.On("Close").Return(nil).Once()
	connector := &mockConnector{}
	connector.On("DefaultI2cBus").Return(0)
	connector.On("GetI2cConnection", 0x50, 2).Return(conn, nil).Once()

	c := New(connector, WithBus(2))
	ctx := context.Background()
	require.NoError(t, c.MasterWrite(ctx, 0x50, []byte{0x00, 0x01}))
	buf := make([]byte, 4)
	require.NoError(t, c.MasterRead(ctx, 0x50, 0x10, buf))
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, buf)
	require.NoError(t, c.Close())

	conn.AssertExpectations(t)
	connector.AssertExpectations(t)
}

func TestController_Probe(t *testing.T) {
	present := &mockConnection{}
	present.On("ReadByte").Return(byte(0x00), nil)
	absent := &mockConnection{}
	absent.On("ReadByte").Return(byte(0), fmt.Errorf("read: %w", unix.ENXIO))
	connector := &mockConnector{}
	connector.On("DefaultI2cBus").Return(1)
	connector.On("GetI2cConnection", 0x20, 1).Return(present, nil)
	connector.On("GetI2cConnection", 0x21, 1).Return(absent, nil)

	c := New(connector)
	found, err := i2cctl.Scan(context.Background(), c, 0x20, 0x21)
	require.NoError(t, err)
	assert.Equal(t, []i2cctl.Address{0x20}, found)
}

func TestController_Errors(t *testing.T) {
	connector := &mockConnector{}
	connector.On("DefaultI2cBus").Return(0)
	connector.On("GetI2cConnection", 0x30, 0).Return(nil, errors.New("no such bus"))
	c := New(connector)
	ctx := context.Background()

	assert.ErrorContains(t, c.MasterWrite(ctx, 0x30, []byte{0x00}), "no such bus")
	assert.ErrorIs(t, c.MasterWrite(ctx, 0x150, []byte{0x00}), i2cctl.ErrUnsupported)
	assert.ErrorIs(t, c.MasterRead(ctx, 0x400, 0x00, nil), i2cctl.ErrAddressRange)
	_, err := c.RegisterSlave(0x10)
	assert.ErrorIs(t, err, i2cctl.ErrUnsupported)
}
