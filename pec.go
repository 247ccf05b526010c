package i2cctl

import "github.com/sigurn/crc8"

var pecTable = crc8.MakeTable(crc8.CRC8)

// PEC computes the SMBus packet error code (CRC-8, polynomial 0x07) of a
// write transaction: the address byte in write position followed by data.
// Only 7-bit addresses are covered by SMBus.
func PEC(addr Address, data []byte) (byte, error) {
	if addr.TenBit() || !addr.Valid() {
		return 0, ErrAddressRange
	}
	crc := crc8.Init(pecTable)
	crc = crc8.Update(crc, []byte{byte(addr) << 1}, pecTable)
	crc = crc8.Update(crc, data, pecTable)
	return crc8.Complete(crc, pecTable), nil
}

// AppendPEC returns data followed by its packet error code.
func AppendPEC(addr Address, data []byte) ([]byte, error) {
	pec, err := PEC(addr, data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, data...)
	return append(out, pec), nil
}
