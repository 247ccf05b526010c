package csr

import "time"

// Control bits written to the CSR. Zero-valued names exist so that register
// writes read like the intended bus condition.
const (
	CtrlSyncReset  byte = 0x01
	CtrlStart      byte = 0x02
	CtrlStop       byte = 0x00
	CtrlRead       byte = 0x04
	CtrlWrite      byte = 0x00
	CtrlMaster     byte = 0x08
	CtrlSlave      byte = 0x00
	CtrlRestart    byte = 0x10
	CtrlIRQEnable  byte = 0x80
	CtrlIRQDisable byte = 0x00
)

// Master status bits read from the CSR.
const (
	MasterIdle      byte = 0x80
	MasterNoAck     byte = 0x40
	MasterDataReady byte = 0x20
	MasterDataReq   byte = 0x10
)

// Slave status bits read from the CSR.
const (
	SlaveNoAck     byte = 0x08
	SlaveDataReady byte = 0x04
	SlaveDataReq   byte = 0x02
	SlaveAddrMatch byte = 0x01

	slaveMask = SlaveNoAck | SlaveDataReady | SlaveDataReq | SlaveAddrMatch
)

// TenBitHeader is the 11110 pattern that prefixes 10-bit addresses.
const TenBitHeader byte = 0x1E

// RegisterFile is the peripheral's control/status and data register pair.
type RegisterFile interface {
	ReadCSR() byte
	WriteCSR(v byte)
	ReadData() byte
	WriteData(v byte)
}

// Interrupts is the host's global interrupt enable flag.
type Interrupts interface {
	Disable()
	Enable()
}

// Vectors attaches handlers to interrupt lines.
type Vectors interface {
	Attach(index int, handler func())
	Detach(index int)
}

// Delayer waits roughly the given number of cycles.
type Delayer interface {
	Delay(cycles int)
}

type DelayFunc func(cycles int)

func (f DelayFunc) Delay(cycles int) {
	f(cycles)
}

// NoDelay is used when register access is slow enough on its own.
var NoDelay = DelayFunc(func(int) {})

// BusyWait returns a Delayer that spins for cycles*perCycle.
func BusyWait(perCycle time.Duration) Delayer {
	return DelayFunc(func(cycles int) {
		deadline := time.Now().Add(time.Duration(cycles) * perCycle)
		for time.Now().Before(deadline) {
		}
	})
}

// NoInterrupts satisfies Interrupts on hosts without a global interrupt flag.
// Transactions are then only serialized by the controller's mutex.
type NoInterrupts struct{}

func (NoInterrupts) Disable() {}
func (NoInterrupts) Enable()  {}
