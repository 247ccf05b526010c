package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mklimuk/i2cctl"
)

// parseAddress accepts decimal, 0x hex, 0o octal or 0b binary notation.
func parseAddress(s string) (i2cctl.Address, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	addr := i2cctl.Address(v)
	if !addr.Valid() {
		return 0, fmt.Errorf("address %q: %w", s, i2cctl.ErrAddressRange)
	}
	return addr, nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", s, err)
	}
	return byte(v), nil
}

// parseHex decodes bytes written as "01ff23", "01 FF 23" or "0x01,0xff".
func parseHex(args ...string) ([]byte, error) {
	joined := strings.Join(args, "")
	joined = strings.NewReplacer("0x", "", "0X", "", ",", "", ":", "", " ", "").Replace(joined)
	b, err := hex.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("invalid data hex string: %w", err)
	}
	return b, nil
}

// describe renders a transaction error with its status snapshot.
func describe(err error) string {
	st := i2cctl.StatusOf(err)
	if st.Kind == i2cctl.KindFailed {
		return err.Error()
	}
	return fmt.Sprintf("%v [%s, status %#02x]", err, st.Kind, st.Raw)
}
