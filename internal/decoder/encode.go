package decoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

var (
	// ErrNotEncodable is returned for registers decoded through a code table.
	ErrNotEncodable = errors.New("register has no numeric encoding")
	// ErrValueRange is returned when a value does not fit the register type.
	ErrValueRange = errors.New("value outside register range")
)

// Encode converts a physical value back into register words, high word
// first. It is the inverse of DecodeRegister for numeric registers.
func Encode(reg catalog.Register, physical float64) ([]uint16, error) {
	if reg.Table() != nil || reg.DataType() == types.DataTypeBinary {
		return nil, fmt.Errorf("%w: %s", ErrNotEncodable, reg.Name())
	}
	if math.IsNaN(physical) || math.IsInf(physical, 0) {
		return nil, fmt.Errorf("%w: %s: %v", ErrValueRange, reg.Name(), physical)
	}

	scale, _ := reg.Scale()
	raw := math.Round(physical / scale)

	var lo, hi float64
	switch reg.DataType() {
	case types.DataTypeU16:
		lo, hi = 0, math.MaxUint16
	case types.DataTypeS16:
		lo, hi = math.MinInt16, math.MaxInt16
	case types.DataTypeU32:
		lo, hi = 0, math.MaxUint32
	case types.DataTypeS32:
		lo, hi = math.MinInt32, math.MaxInt32
	}
	if raw < lo || raw > hi {
		return nil, fmt.Errorf("%w: %s: %v encodes to %v, limits %v..%v",
			ErrValueRange, reg.Name(), physical, raw, lo, hi)
	}

	switch reg.DataType() {
	case types.DataTypeU16:
		return []uint16{uint16(raw)}, nil
	case types.DataTypeS16:
		return []uint16{uint16(int16(raw))}, nil
	case types.DataTypeU32:
		v := uint32(raw)
		return []uint16{uint16(v >> 16), uint16(v)}, nil
	default:
		v := uint32(int32(raw))
		return []uint16{uint16(v >> 16), uint16(v)}, nil
	}
}
