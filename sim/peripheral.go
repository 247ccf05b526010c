package sim

import (
	"fmt"
	"sync"

	"github.com/mklimuk/i2cctl/csr"
)

type OpKind int

const (
	OpWriteCSR OpKind = iota
	OpWriteData
	OpReadData
)

// Op is a register access observed by the peripheral. CSR reads (polls) are
// counted but not traced.
type Op struct {
	Kind  OpKind
	Value byte
}

func (o Op) String() string {
	switch o.Kind {
	case OpWriteCSR:
		return fmt.Sprintf("CSR<-%#02x", o.Value)
	case OpWriteData:
		return fmt.Sprintf("DATA<-%#02x", o.Value)
	default:
		return fmt.Sprintf("DATA->%#02x", o.Value)
	}
}

type phase int

const (
	phaseIdle phase = iota
	phaseHeader
	phaseWrite
	phaseRead
)

// DefaultNackStatus is the CSR snapshot presented when a device does not
// acknowledge: the peripheral drops the bus to idle together with NO_ACK.
const DefaultNackStatus = csr.MasterIdle | csr.MasterNoAck

type Option func(*Peripheral)

// WithNackStatus overrides the status presented on NACK.
func WithNackStatus(v byte) Option {
	return func(p *Peripheral) {
		p.nackStatus = v
	}
}

// WithInterrupts connects the peripheral's interrupt line (slave mode).
func WithInterrupts(irq *Interrupts, index int) Option {
	return func(p *Peripheral) {
		p.irq = irq
		p.irqIndex = index
	}
}

// Peripheral simulates the CSR I2C controller together with the devices on
// its bus. It implements csr.RegisterFile.
type Peripheral struct {
	mx         sync.Mutex
	devices    map[uint16]*Device
	nackStatus byte
	irq        *Interrupts
	irqIndex   int

	status      byte
	data        byte
	latch       byte
	pending     bool
	phase       phase
	read        bool
	hi          byte
	target      *Device
	written     int
	current     []byte
	readCount   int
	stopPending bool

	slaveOn   bool
	slaveAddr byte

	trace []Op
	polls int
}

var _ csr.RegisterFile = &Peripheral{}

func New(devices []*Device, opts ...Option) *Peripheral {
	p := &Peripheral{
		devices:    make(map[uint16]*Device),
		nackStatus: DefaultNackStatus,
		irqIndex:   csr.DefaultIRQIndex,
		status:     csr.MasterIdle,
	}
	for _, d := range devices {
		p.devices[busKey(d.Address)] = d
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Peripheral) AddDevice(d *Device) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.devices[busKey(d.Address)] = d
}

func (p *Peripheral) Device(addr uint16) *Device {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.devices[busKey(addr)]
}

func (p *Peripheral) ReadCSR() byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.polls++
	if p.pending {
		p.commit()
	}
	return p.status
}

func (p *Peripheral) WriteCSR(v byte) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.trace = append(p.trace, Op{Kind: OpWriteCSR, Value: v})
	if v&csr.CtrlMaster == 0 {
		p.slaveControl(v)
		return
	}
	switch {
	case v&csr.CtrlSyncReset != 0:
		p.resetMaster()
	case v&csr.CtrlRestart != 0:
		// the latched byte becomes the address of the following START
		p.pending = false
		p.closeWrite()
		p.phase = phaseIdle
		p.status = csr.MasterIdle
	case v&csr.CtrlStart != 0:
		p.pending = false
		p.start(v&csr.CtrlRead != 0)
	default:
		p.stop()
	}
}

func (p *Peripheral) ReadData() byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.trace = append(p.trace, Op{Kind: OpReadData, Value: p.data})
	return p.data
}

func (p *Peripheral) WriteData(v byte) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.trace = append(p.trace, Op{Kind: OpWriteData, Value: v})
	p.latch = v
	switch p.phase {
	case phaseHeader:
		d := p.devices[tenBitKey(p.hi, v>>1)]
		if d == nil {
			p.nack()
			return
		}
		p.address(d, p.read)
	case phaseWrite:
		p.pending = true
		p.status = 0
	case phaseRead:
		p.ack()
	}
}

func (p *Peripheral) resetMaster() {
	p.closeWrite()
	p.phase = phaseIdle
	p.status = csr.MasterIdle
	p.pending = false
	p.stopPending = false
	p.target = nil
	p.slaveOn = false
}

func (p *Peripheral) start(read bool) {
	a := p.latch
	if a>>3 == csr.TenBitHeader {
		hi := (a >> 1) & 0x3
		if !p.hasTenBit(hi) {
			p.nack()
			return
		}
		p.hi = hi
		p.read = read
		p.phase = phaseHeader
		p.status = csr.MasterDataReq
		return
	}
	d := p.devices[uint16(a>>1)]
	if d == nil {
		p.nack()
		return
	}
	p.address(d, read)
}

func (p *Peripheral) hasTenBit(hi byte) bool {
	for key := range p.devices {
		if key&0x8000 != 0 && byte(key>>7)&0x3 == hi {
			return true
		}
	}
	return false
}

func (p *Peripheral) address(d *Device, read bool) {
	p.target = d
	if read {
		p.phase = phaseRead
		p.readCount = 0
		p.stopPending = false
		p.present()
		return
	}
	p.phase = phaseWrite
	p.written = 0
	p.current = []byte{}
	p.status = csr.MasterDataReq
}

// commit shifts the latched byte out to the target.
func (p *Peripheral) commit() {
	p.pending = false
	p.written++
	if p.target.NackAt == p.written {
		p.closeWrite()
		p.nack()
		return
	}
	p.current = append(p.current, p.latch)
	if p.written == 1 {
		p.target.setPointer(p.latch)
	} else {
		p.target.store(p.latch)
	}
	p.status = csr.MasterDataReq
}

func (p *Peripheral) closeWrite() {
	if p.phase == phaseWrite && p.target != nil {
		p.target.record(p.current)
		p.current = nil
	}
}

func (p *Peripheral) present() {
	p.readCount++
	if p.target.IdleAt == p.readCount {
		p.phase = phaseIdle
		p.status = csr.MasterIdle
		return
	}
	p.data = p.target.load()
	p.status = csr.MasterDataReq | csr.MasterDataReady
}

// ack handles the dummy data write that acknowledges a received byte.
func (p *Peripheral) ack() {
	if p.stopPending {
		p.stopPending = false
		p.phase = phaseIdle
		p.status = csr.MasterIdle
		return
	}
	p.present()
}

func (p *Peripheral) stop() {
	if p.phase == phaseRead {
		p.stopPending = true
		return
	}
	if p.pending {
		p.commit()
	}
	p.closeWrite()
	p.phase = phaseIdle
	p.status = csr.MasterIdle
}

func (p *Peripheral) nack() {
	p.phase = phaseIdle
	p.target = nil
	p.status = p.nackStatus
}

func (p *Peripheral) slaveControl(v byte) {
	switch {
	case v&csr.CtrlSyncReset != 0:
		p.resetMaster()
		p.status = 0
	case v&csr.CtrlStart != 0:
		p.slaveOn = true
		p.slaveAddr = p.latch
		p.status = 0
	}
}

// InjectSlaveWrite simulates an external master writing data to addr. Each
// byte raises the peripheral interrupt. It reports whether the address
// matched an enabled slave.
func (p *Peripheral) InjectSlaveWrite(addr byte, data ...byte) bool {
	if !p.slaveMatch(addr) {
		return false
	}
	for _, b := range data {
		p.mx.Lock()
		p.status = csr.SlaveAddrMatch | csr.SlaveDataReady
		p.data = b
		p.mx.Unlock()
		p.raise()
	}
	return true
}

// InjectSlaveRead simulates an external master requesting a byte from addr.
func (p *Peripheral) InjectSlaveRead(addr byte) bool {
	if !p.slaveMatch(addr) {
		return false
	}
	p.mx.Lock()
	p.status = csr.SlaveAddrMatch | csr.SlaveDataReq
	p.mx.Unlock()
	p.raise()
	return true
}

func (p *Peripheral) slaveMatch(addr byte) bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.slaveOn && p.slaveAddr == addr
}

func (p *Peripheral) raise() {
	if p.irq != nil {
		p.irq.Raise(p.irqIndex)
	}
}

// SlaveEnabled reports whether slave mode is on and its address.
func (p *Peripheral) SlaveEnabled() (bool, byte) {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.slaveOn, p.slaveAddr
}

// Latch returns the last byte written to the data register.
func (p *Peripheral) Latch() byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.latch
}

func (p *Peripheral) Trace() []Op {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]Op{}, p.trace...)
}

func (p *Peripheral) ResetTrace() {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.trace = nil
	p.polls = 0
}

// CSRWrites returns the values written to the CSR, in order.
func (p *Peripheral) CSRWrites() []byte {
	return p.filter(OpWriteCSR)
}

// DataWrites returns the values written to the data register, in order.
func (p *Peripheral) DataWrites() []byte {
	return p.filter(OpWriteData)
}

func (p *Peripheral) filter(kind OpKind) []byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	var out []byte
	for _, op := range p.trace {
		if op.Kind == kind {
			out = append(out, op.Value)
		}
	}
	return out
}

func (p *Peripheral) Polls() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.polls
}
