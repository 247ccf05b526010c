package i2cctl

import (
	"context"
	"errors"
	"fmt"
)

// Reserved reports whether a 7-bit address belongs to the reserved
// 0000xxx or 1111xxx groups. 10-bit addresses are never reserved.
func (a Address) Reserved() bool {
	if a.TenBit() {
		return false
	}
	return (a&0x78) == 0 || (a&0x78) == 0x78
}

// Scan probes every address in [from, to] with an empty write (address phase
// only) and returns those that acknowledged. Reserved addresses are skipped.
// A NACK or an idle bus means nobody answered; any other error stops the scan.
func Scan(ctx context.Context, w MasterWriter, from, to Address) ([]Address, error) {
	if !from.Valid() || !to.Valid() {
		return nil, ErrAddressRange
	}
	var found []Address
	for addr := from; addr <= to; addr++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if addr.Reserved() {
			continue
		}
		err := w.MasterWrite(ctx, addr, nil)
		switch {
		case err == nil:
			found = append(found, addr)
		case errors.Is(err, ErrNoAck), errors.Is(err, ErrBusIdle):
		default:
			return found, fmt.Errorf("probe %s: %w", addr, err)
		}
	}
	return found, nil
}
