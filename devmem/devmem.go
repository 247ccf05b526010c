// Package devmem exposes a memory mapped CSR I2C peripheral, typically
// through /dev/mem, as a csr.RegisterFile.
package devmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/mklimuk/i2cctl/csr"
)

// DefaultPath is the physical memory device.
const DefaultPath = "/dev/mem"

// Layout locates the peripheral: Base is the physical address of its register
// block, CSR and Data are byte offsets from Base.
type Layout struct {
	Base int64 `yaml:"base"`
	CSR  int64 `yaml:"csr"`
	Data int64 `yaml:"data"`
}

func (l Layout) validate() error {
	if l.Base < 0 || l.CSR < 0 || l.Data < 0 {
		return fmt.Errorf("devmem: negative offset in layout %+v", l)
	}
	if l.CSR == l.Data {
		return fmt.Errorf("devmem: CSR and data registers share offset %#x", l.CSR)
	}
	return nil
}

// Window is a mapped register block. Registers are accessed one byte at a
// time.
type Window struct {
	f    *os.File
	mem  []byte
	csr  int
	data int
}

var _ csr.RegisterFile = &Window{}

// Open maps the page(s) covering layout from the file at path.
func Open(path string, layout Layout) (*Window, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("devmem: could not open %s: %w", path, err)
	}
	page := int64(os.Getpagesize())
	aligned := layout.Base &^ (page - 1)
	delta := layout.Base - aligned
	length := delta + max(layout.CSR, layout.Data) + 1
	mem, err := unix.Mmap(int(f.Fd()), aligned, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("devmem: could not map %#x+%d: %w", aligned, length, err)
	}
	return &Window{
		f:    f,
		mem:  mem,
		csr:  int(delta + layout.CSR),
		data: int(delta + layout.Data),
	}, nil
}

func (w *Window) ReadCSR() byte {
	return w.mem[w.csr]
}

func (w *Window) WriteCSR(v byte) {
	w.mem[w.csr] = v
}

func (w *Window) ReadData() byte {
	return w.mem[w.data]
}

func (w *Window) WriteData(v byte) {
	w.mem[w.data] = v
}

func (w *Window) Close() error {
	if err := unix.Munmap(w.mem); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("devmem: could not unmap: %w", err)
	}
	return w.f.Close()
}
