package types

import (
	"fmt"
	"strconv"
	"strings"
)

type DataType string

const (
	DataTypeU16    DataType = "U16"
	DataTypeS16    DataType = "S16"
	DataTypeU32    DataType = "U32"
	DataTypeS32    DataType = "S32"
	DataTypeBinary DataType = "BINARY"
)

// Valid reports whether d is one of the five recognized data types.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeU16, DataTypeS16, DataTypeU32, DataTypeS32, DataTypeBinary:
		return true
	}
	return false
}

// Words returns the register count implied by the data type.
// BINARY has no implied width; its width comes from the bit length.
func (d DataType) Words() int {
	switch d {
	case DataTypeU16, DataTypeS16:
		return 1
	case DataTypeU32, DataTypeS32:
		return 2
	default:
		return 0
	}
}

func (d DataType) Signed() bool {
	return d == DataTypeS16 || d == DataTypeS32
}

// RegisterClass partitions registers by access: read-only measurement
// (input) registers and read/write configuration (holding) registers.
type RegisterClass string

const (
	RegisterClassRead    RegisterClass = "read"
	RegisterClassHolding RegisterClass = "holding"
)

// Modbus function codes used to fetch each class.
const (
	FuncCodeReadHoldingRegisters uint8 = 0x03
	FuncCodeReadInputRegisters   uint8 = 0x04
)

func ParseRegisterClass(s string) (RegisterClass, error) {
	switch RegisterClass(strings.ToLower(strings.TrimSpace(s))) {
	case RegisterClassRead, "input":
		return RegisterClassRead, nil
	case RegisterClassHolding:
		return RegisterClassHolding, nil
	}
	return "", fmt.Errorf("unknown register class %q (want read or holding)", s)
}

// FunctionCode returns the Modbus read function for the class.
func (c RegisterClass) FunctionCode() uint8 {
	if c == RegisterClassHolding {
		return FuncCodeReadHoldingRegisters
	}
	return FuncCodeReadInputRegisters
}

// ModelID is the device type code reported by the inverter (register 5000).
type ModelID uint16

func (m ModelID) String() string {
	return fmt.Sprintf("0x%04X", uint16(m))
}

// ParseModelID accepts hex ("0x013C") or decimal ("316") notation.
func ParseModelID(s string) (ModelID, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid model id %q: %w", s, err)
	}
	return ModelID(v), nil
}

func (m ModelID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ModelID) UnmarshalText(text []byte) error {
	id, err := ParseModelID(string(text))
	if err != nil {
		return err
	}
	*m = id
	return nil
}

// ScanRange is a contiguous block of wire offsets fetched in one read.
// Start is zero-based: documented register N lives at offset N-1.
type ScanRange struct {
	Start uint16 `json:"scan_start" yaml:"scan_start"`
	Count uint16 `json:"scan_range" yaml:"scan_range"`
}

// End returns the first offset past the range.
func (r ScanRange) End() uint32 {
	return uint32(r.Start) + uint32(r.Count)
}

// Contains reports whether words registers starting at offset lie inside r.
func (r ScanRange) Contains(offset uint16, words int) bool {
	return offset >= r.Start && uint32(offset)+uint32(words) <= r.End()
}

func (r ScanRange) String() string {
	if r.Count == 0 {
		return fmt.Sprintf("%d+0", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End()-1)
}
