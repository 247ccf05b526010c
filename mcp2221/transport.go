package mcp2221

import (
	"context"
	"fmt"

	"github.com/karalabe/hid"

	"github.com/mklimuk/i2cctl/ctxflag"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// Transport exchanges 64 byte HID reports with the bridge.
type Transport interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// Opener returns a transport for a single command/response exchange.
type Opener func(ctx context.Context) (Transport, error)

// Info describes an attached bridge.
type Info struct {
	Index        int    `yaml:"index"`
	Path         string `yaml:"path"`
	Serial       string `yaml:"serial"`
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
	Release      uint16 `yaml:"release"`
}

var enumerate = hid.Enumerate

// Detect lists the MCP2221 bridges attached to the host. The index is what
// ctxflag.SetDevice expects.
func Detect() []Info {
	devs := enumerate(VendorID, ProductID)
	out := make([]Info, 0, len(devs))
	for i, d := range devs {
		out = append(out, Info{
			Index:        i,
			Path:         d.Path,
			Serial:       d.Serial,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Release:      d.Release,
		})
	}
	return out
}

// OpenHID opens the bridge selected by ctxflag.Device. Without a selection
// exactly one bridge must be attached.
func OpenHID(ctx context.Context) (Transport, error) {
	devs := enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, fmt.Errorf("mcp2221: device not found")
	}
	index, selected := ctxflag.Device(ctx)
	if !selected {
		if len(devs) > 1 {
			return nil, fmt.Errorf("mcp2221: ambiguous device identification, %d devices attached", len(devs))
		}
		index = 0
	}
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("mcp2221: no device with id %d", index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("mcp2221: error opening device: %w", err)
	}
	return dev, nil
}
