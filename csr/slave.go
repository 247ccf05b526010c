package csr

import (
	"fmt"

	"github.com/mklimuk/i2cctl"
)

// RegisterSlave resets the peripheral into slave mode answering on the 7-bit
// address addr and attaches the controller's interrupt handler. Every
// interrupt is delivered as an event on the returned channel. Registering
// again replaces (and closes) the previous channel.
func (c *Controller) RegisterSlave(addr byte) (<-chan i2cctl.SlaveEvent, error) {
	if c.config.Vectors == nil {
		return nil, fmt.Errorf("csr: slave mode without interrupt vectors: %w", i2cctl.ErrUnsupported)
	}
	if addr > 127 {
		return nil, fmt.Errorf("csr: slave address %d: %w", addr, i2cctl.ErrAddressRange)
	}
	events := make(chan i2cctl.SlaveEvent, c.config.SlaveBuffer)

	c.begin()
	defer c.end()
	c.swapEvents(events)
	c.reset(CtrlSlave | CtrlWrite)
	c.regs.WriteData(addr)
	c.config.Vectors.Attach(c.config.IRQIndex, c.serviceSlave)
	c.regs.WriteCSR(CtrlStart | CtrlWrite | CtrlSlave | CtrlIRQEnable)
	c.log.Debug("slave registered", "addr", fmt.Sprintf("%#02x", addr), "irq", c.config.IRQIndex)
	return events, nil
}

// ReleaseSlave detaches the interrupt handler, resets the peripheral and
// closes the event channel.
func (c *Controller) ReleaseSlave() error {
	if c.config.Vectors == nil {
		return fmt.Errorf("csr: slave mode without interrupt vectors: %w", i2cctl.ErrUnsupported)
	}
	c.begin()
	defer c.end()
	c.config.Vectors.Detach(c.config.IRQIndex)
	c.reset(CtrlSlave | CtrlWrite)
	c.swapEvents(nil)
	return nil
}

// SlaveReply loads the byte returned to the master on its next slave read.
func (c *Controller) SlaveReply(b byte) {
	c.begin()
	defer c.end()
	c.regs.WriteData(b)
}

func (c *Controller) swapEvents(events chan i2cctl.SlaveEvent) {
	c.slaveMx.Lock()
	defer c.slaveMx.Unlock()
	if c.events != nil {
		close(c.events)
	}
	c.events = events
}

// serviceSlave runs in interrupt context and must never block.
func (c *Controller) serviceSlave() {
	t := c.regs.ReadCSR()
	ev := i2cctl.SlaveEvent{Flags: i2cctl.SlaveFlags(t & slaveMask)}
	if t&SlaveDataReady != 0 {
		ev.Data = c.regs.ReadData()
	}
	c.slaveMx.Lock()
	defer c.slaveMx.Unlock()
	if c.events == nil {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.dropped.Add(1)
		c.log.Debug("slave event dropped", "flags", ev.Flags, "data", fmt.Sprintf("%#02x", ev.Data))
	}
}
