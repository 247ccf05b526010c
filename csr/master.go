package csr

import (
	"context"
	"fmt"

	"github.com/mklimuk/i2cctl"
)

// header returns the first byte of a 10-bit address in write position:
// 11110 followed by address bits 8:7.
func header(addr i2cctl.Address) byte {
	t := byte(addr>>7) & 0x3
	t += TenBitHeader * 4
	return t << 1
}

// baseByte returns the low seven address bits in write position.
func baseByte(addr i2cctl.Address) byte {
	return (byte(addr) & 0x7F) << 1
}

// addressPhase starts the transaction. 10-bit addresses send the header with
// the START condition and wait for it to be acknowledged; 7-bit addresses
// send the START together with the address byte.
func (c *Controller) addressPhase(ctx context.Context, addr i2cctl.Address) error {
	if addr.TenBit() {
		c.regs.WriteData(header(addr))
		c.regs.WriteCSR(CtrlStart | CtrlWrite | CtrlMaster | CtrlIRQDisable)
		if err := c.wait(ctx); err != nil {
			return err
		}
	}
	c.regs.WriteData(baseByte(addr))
	if !addr.TenBit() {
		c.regs.WriteCSR(CtrlStart | CtrlWrite | CtrlMaster | CtrlIRQDisable)
		c.pause()
	}
	return nil
}

func (c *Controller) reset(mode byte) {
	c.regs.WriteCSR(mode | CtrlSyncReset)
	c.pause()
}

// MasterWrite sends buf to addr. An empty buf only runs the address phase.
// The first NACK or unexpected idle aborts the transaction without an
// explicit STOP and returns the raw status as an *i2cctl.StatusError.
func (c *Controller) MasterWrite(ctx context.Context, addr i2cctl.Address, buf []byte) error {
	if !addr.Valid() {
		return fmt.Errorf("csr: write to %d: %w", uint16(addr), i2cctl.ErrAddressRange)
	}
	c.begin()
	defer c.end()
	return c.finish("write", addr, c.masterWrite(ctx, addr, buf))
}

func (c *Controller) masterWrite(ctx context.Context, addr i2cctl.Address, buf []byte) error {
	c.reset(CtrlMaster | CtrlWrite)
	if err := c.addressPhase(ctx, addr); err != nil {
		return err
	}
	for _, b := range buf {
		if err := c.wait(ctx); err != nil {
			return err
		}
		c.regs.WriteData(b)
		c.pause()
	}
	t, err := c.poll(ctx, MasterDataReq|MasterIdle)
	if err != nil {
		return err
	}
	// idle is the normal end here, only a NACK of the final byte (or of the
	// address when buf is empty) fails the transaction
	if t&MasterNoAck != 0 {
		return i2cctl.NewStatusError(t)
	}
	c.regs.WriteCSR(CtrlStop | CtrlWrite | CtrlMaster | CtrlIRQDisable)
	c.pause()
	_, err = c.poll(ctx, MasterIdle)
	return err
}

// MasterRead writes the one byte sub-address sub to addr, turns the bus
// around with a repeated start and reads len(buf) bytes into buf. On failure
// the bytes received so far stay in buf.
func (c *Controller) MasterRead(ctx context.Context, addr i2cctl.Address, sub byte, buf []byte) error {
	if !addr.Valid() {
		return fmt.Errorf("csr: read from %d: %w", uint16(addr), i2cctl.ErrAddressRange)
	}
	c.begin()
	defer c.end()
	return c.finish("read", addr, c.masterRead(ctx, addr, sub, buf))
}

func (c *Controller) masterRead(ctx context.Context, addr i2cctl.Address, sub byte, buf []byte) error {
	c.reset(CtrlMaster | CtrlWrite)
	if err := c.addressPhase(ctx, addr); err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.regs.WriteData(sub)
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.turnAround(ctx, addr); err != nil {
		return err
	}

	last := len(buf) - 1
	for i := range buf {
		t, err := c.poll(ctx, MasterDataReady|MasterIdle)
		if err != nil {
			return err
		}
		// STOP goes out with the last byte, before its status is inspected.
		if i == last {
			c.regs.WriteCSR(CtrlStop | CtrlRead | CtrlMaster | CtrlIRQDisable)
		}
		if err := checkStatus(t); err != nil {
			return err
		}
		buf[i] = c.regs.ReadData()
		c.regs.WriteData(0)
		c.pause()
	}
	if len(buf) == 0 {
		// nothing carried the STOP; release the bus with a discarded byte
		c.regs.WriteCSR(CtrlStop | CtrlRead | CtrlMaster | CtrlIRQDisable)
		c.regs.WriteData(0)
		c.pause()
	}
	_, err := c.poll(ctx, MasterIdle)
	return err
}

// turnAround switches the bus from the sub-address write to the read phase.
// The 10-bit sequence re-sends the header, the 7-bit one only the address byte.
func (c *Controller) turnAround(ctx context.Context, addr i2cctl.Address) error {
	if addr.TenBit() {
		c.regs.WriteData(header(addr))
		c.pause()
		c.regs.WriteCSR(CtrlRestart | CtrlStop | CtrlRead | CtrlMaster | CtrlIRQDisable)
		if _, err := c.poll(ctx, MasterIdle); err != nil {
			return err
		}
		c.regs.WriteCSR(CtrlStart | CtrlRead | CtrlMaster | CtrlIRQDisable)
		if err := c.wait(ctx); err != nil {
			return err
		}
		c.regs.WriteData(baseByte(addr))
		return c.wait(ctx)
	}
	c.regs.WriteData(baseByte(addr))
	c.regs.WriteCSR(CtrlRestart | CtrlStop | CtrlRead | CtrlMaster | CtrlIRQDisable)
	if _, err := c.poll(ctx, MasterIdle); err != nil {
		return err
	}
	c.regs.WriteCSR(CtrlStart | CtrlRead | CtrlMaster | CtrlIRQDisable)
	return c.wait(ctx)
}
