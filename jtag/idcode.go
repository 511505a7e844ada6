package jtag

// IDCode is a parsed IEEE 1149.1 identification code.
type IDCode struct {
	// Raw is the full 32-bit code.
	Raw uint32
	// Version is bits 31:28.
	Version uint8
	// PartNumber is bits 27:12.
	PartNumber uint16
	// ManufacturerID is the JEP106 code in bits 11:1.
	ManufacturerID uint16
	// Valid reports whether bit 0 reads 1, as every conforming IDCODE
	// must; a zero here means the scan returned garbage.
	Valid bool
}

// ParseIDCode splits a raw identification code into its fields.
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:            raw,
		Version:        uint8(raw >> 28),
		PartNumber:     uint16((raw >> 12) & 0xffff),
		ManufacturerID: uint16((raw >> 1) & 0x7ff),
		Valid:          raw&1 == 1,
	}
}
