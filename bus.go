package i2cctl

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoAck        = errors.New("peripheral did not acknowledge")
	ErrBusIdle      = errors.New("bus went idle before the expected handshake")
	ErrStuck        = errors.New("bus never reached the expected condition")
	ErrAddressRange = fmt.Errorf("address out of range (0-%d)", MaxAddress)
	ErrUnsupported  = errors.New("operation not supported by this controller")
	ErrBusBusy      = errors.New("bus busy")
)

// MaxAddress is the highest 10-bit device address.
const MaxAddress = 1023

// Address is an I2C device address. Values up to 127 are 7-bit addresses,
// values 128-1023 are 10-bit addresses. There is no separate mode tag.
type Address uint16

func (a Address) TenBit() bool {
	return a > 127
}

func (a Address) Valid() bool {
	return a <= MaxAddress
}

func (a Address) String() string {
	if a.TenBit() {
		return fmt.Sprintf("%#03x (10-bit)", uint16(a))
	}
	return fmt.Sprintf("%#02x", uint16(a))
}

// MasterWriter sends a buffer to a device.
type MasterWriter interface {
	MasterWrite(ctx context.Context, addr Address, buf []byte) error
}

// MasterReader writes a one byte sub-address and reads len(buf) bytes back
// after a repeated start.
type MasterReader interface {
	MasterRead(ctx context.Context, addr Address, sub byte, buf []byte) error
}

// SlaveRegistrar puts the controller in slave mode, answering on addr.
// Bus events are delivered on the returned channel.
type SlaveRegistrar interface {
	RegisterSlave(addr byte) (<-chan SlaveEvent, error)
}

// Controller is implemented by every bus backend.
type Controller interface {
	MasterWriter
	MasterReader
	SlaveRegistrar
}

// SlaveEvent is a snapshot taken by the controller when the peripheral
// raises its interrupt in slave mode.
type SlaveEvent struct {
	Flags SlaveFlags
	// Data holds the received byte when Flags has SlaveDataReady.
	Data byte
}

type SlaveFlags byte

const (
	SlaveAddrMatch SlaveFlags = 1 << iota
	SlaveDataReq
	SlaveDataReady
	SlaveNoAck
)

func (f SlaveFlags) Has(flag SlaveFlags) bool {
	return f&flag == flag
}

func (f SlaveFlags) String() string {
	names := []struct {
		flag SlaveFlags
		name string
	}{
		{SlaveAddrMatch, "ADDR_MATCH"},
		{SlaveDataReq, "DATA_REQ"},
		{SlaveDataReady, "DATA_READY"},
		{SlaveNoAck, "NO_ACK"},
	}
	s := ""
	for _, n := range names {
		if f.Has(n.flag) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "NONE"
	}
	return s
}
