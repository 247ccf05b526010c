package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		expected i2cctl.Address
		fails    bool
	}{
		{"0x50", 0x50, false},
		{"80", 80, false},
		{"0b1010000", 0x50, false},
		{"0x3FF", 0x3FF, false},
		{"0x400", 0, true},
		{"zz", 0, true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			addr, err := parseAddress(test.in)
			if test.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, addr)
		})
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in       []string
		expected []byte
	}{
		{[]string{"01ff23"}, []byte{0x01, 0xFF, 0x23}},
		{[]string{"01 FF", "23"}, []byte{0x01, 0xFF, 0x23}},
		{[]string{"0x01,0xff"}, []byte{0x01, 0xFF}},
		{nil, []byte{}},
	}
	for _, test := range tests {
		b, err := parseHex(test.in...)
		require.NoError(t, err)
		assert.Equal(t, test.expected, b)
	}
	_, err := parseHex("123")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "boom", describe(errors.New("boom")))
	assert.Equal(t, "i2c: peripheral did not acknowledge (status 0xc0) [no-ack, status 0xc0]", describe(i2cctl.NewStatusError(0xC0)))
}
