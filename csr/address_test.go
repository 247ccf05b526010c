package csr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/i2cctl"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		addr     i2cctl.Address
		expected byte
	}{
		{128, 0xF2},
		{0x150, 0xF4},
		{0x1FF, 0xF6},
		{512, 0xF0},
		{1023, 0xF6},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#x", uint16(test.addr)), func(t *testing.T) {
			assert.Equal(t, test.expected, header(test.addr))
			assert.Equal(t, TenBitHeader, header(test.addr)>>3)
		})
	}
}

func TestBaseByte(t *testing.T) {
	tests := []struct {
		addr     i2cctl.Address
		expected byte
	}{
		{0x00, 0x00},
		{0x50, 0xA0},
		{0x7F, 0xFE},
		{0x150, 0xA0},
		{0x3FF, 0xFE},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#x", uint16(test.addr)), func(t *testing.T) {
			assert.Equal(t, test.expected, baseByte(test.addr))
		})
	}
}
