package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusKey(t *testing.T) {
	assert.Equal(t, uint16(0x50), busKey(0x50))
	assert.Equal(t, busKey(0x150), busKey(0x350), "bit 9 is not on the wire")
	assert.NotEqual(t, busKey(0x150), busKey(0x50))
	assert.NotEqual(t, busKey(0x150), busKey(0x1D0))
}

func TestDevice_PointerWraps(t *testing.T) {
	d := NewDevice(0x50, 4)
	d.setPointer(3)
	d.store(0xAA)
	d.store(0xBB)
	assert.Equal(t, []byte{0xBB, 0x00, 0x00, 0xAA}, d.Memory)
	d.setPointer(3)
	assert.Equal(t, byte(0xAA), d.load())
	assert.Equal(t, byte(0xBB), d.load())

	empty := NewDevice(0x51, 0)
	assert.Equal(t, byte(0xFF), empty.load())
}
