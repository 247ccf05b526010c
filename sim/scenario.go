package sim

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultMemorySize = 256

// Scenario describes a simulated bus, typically loaded from YAML:
//
//	nack_status: 0xC0
//	devices:
//	  - address: 0x50
//	    size: 256
//	    data: "00 11 22 33"
//	  - address: 0x150
//	    nack_at: 2
type Scenario struct {
	NackStatus *uint8       `yaml:"nack_status"`
	IRQIndex   *int         `yaml:"irq_index"`
	Devices    []DeviceSpec `yaml:"devices"`
}

type DeviceSpec struct {
	Address uint16 `yaml:"address"`
	Size    int    `yaml:"size"`
	// Data is the initial memory content as hex, whitespace is ignored.
	Data   string `yaml:"data"`
	NackAt int    `yaml:"nack_at"`
	IdleAt int    `yaml:"idle_at"`
}

func LoadScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("sim: could not decode scenario: %w", err)
	}
	return &s, nil
}

func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sim: could not open scenario: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadScenario(f)
}

// Build creates the peripheral described by the scenario. irq may be nil
// when slave mode is not used.
func (s *Scenario) Build(irq *Interrupts) (*Peripheral, error) {
	devices := make([]*Device, 0, len(s.Devices))
	seen := make(map[uint16]uint16)
	for _, spec := range s.Devices {
		d, err := spec.device()
		if err != nil {
			return nil, err
		}
		key := busKey(d.Address)
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("sim: devices %#x and %#x share the same bus address", other, d.Address)
		}
		seen[key] = d.Address
		devices = append(devices, d)
	}
	var opts []Option
	if s.NackStatus != nil {
		opts = append(opts, WithNackStatus(*s.NackStatus))
	}
	if irq != nil {
		index := -1
		if s.IRQIndex != nil {
			index = *s.IRQIndex
		}
		opts = append(opts, withInterruptLine(irq, index))
	}
	return New(devices, opts...), nil
}

// withInterruptLine keeps the default line when index is negative.
func withInterruptLine(irq *Interrupts, index int) Option {
	return func(p *Peripheral) {
		p.irq = irq
		if index >= 0 {
			p.irqIndex = index
		}
	}
}

func (spec DeviceSpec) device() (*Device, error) {
	if spec.Address > 1023 {
		return nil, fmt.Errorf("sim: device address %#x out of range", spec.Address)
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(spec.Data), ""))
	if err != nil {
		return nil, fmt.Errorf("sim: device %#x: invalid data: %w", spec.Address, err)
	}
	size := spec.Size
	if size == 0 {
		size = defaultMemorySize
	}
	if len(data) > size {
		size = len(data)
	}
	d := NewDevice(spec.Address, size)
	copy(d.Memory, data)
	d.NackAt = spec.NackAt
	d.IdleAt = spec.IdleAt
	return d, nil
}
