package sim

import "sync"

// Device is a register-file style target on the simulated bus: the first
// byte written after addressing sets the register pointer, further bytes are
// stored at the pointer and reads return bytes from it. The pointer
// auto-increments and wraps around Memory.
type Device struct {
	Address uint16
	Memory  []byte
	// NackAt makes the device NACK the n-th data byte (1-based) of a write
	// phase. Zero never NACKs.
	NackAt int
	// IdleAt drops the bus to idle instead of presenting the n-th byte
	// (1-based) of a read phase. Zero never does.
	IdleAt int

	mx      sync.Mutex
	pointer int
	writes  [][]byte
}

func NewDevice(address uint16, size int) *Device {
	return &Device{Address: address, Memory: make([]byte, size)}
}

// Writes returns the bytes received in each completed write phase.
func (d *Device) Writes() [][]byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	out := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		out[i] = append([]byte{}, w...)
	}
	return out
}

func (d *Device) Pointer() int {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.pointer
}

func (d *Device) setPointer(p byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.pointer = int(p)
}

func (d *Device) store(b byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(d.Memory) == 0 {
		return
	}
	d.Memory[d.pointer%len(d.Memory)] = b
	d.pointer++
}

func (d *Device) load() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(d.Memory) == 0 {
		return 0xFF
	}
	b := d.Memory[d.pointer%len(d.Memory)]
	d.pointer++
	return b
}

func (d *Device) record(w []byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.writes = append(d.writes, w)
}

// busKey maps an address to what the controller actually puts on the wire:
// 10-bit addresses only carry bits 8:7 in the header and bits 6:0 in the
// second byte, so addresses that differ only in bit 9 share a key.
func busKey(addr uint16) uint16 {
	if addr <= 127 {
		return addr
	}
	return tenBitKey(byte(addr>>7)&0x3, byte(addr)&0x7F)
}

func tenBitKey(hi, low byte) uint16 {
	return 0x8000 | uint16(hi)<<7 | uint16(low)
}
