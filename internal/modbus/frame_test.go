package modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/types"
)

func TestReadRegistersRequest_Input(t *testing.T) {
	f, err := ReadRegistersRequest(1, 1, types.RegisterClassRead, 4999, 110)
	require.NoError(t, err)

	want := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x04, 0x13, 0x87, 0x00, 0x6E}
	assert.Equal(t, want, f.Encode())
	assert.Equal(t, uint16(6), f.Length)
}

func TestReadRegistersRequest_Holding(t *testing.T) {
	f, err := ReadRegistersRequest(7, 3, types.RegisterClassHolding, 4999, 49)
	require.NoError(t, err)
	assert.Equal(t, uint8(FuncCodeReadHoldingRegisters), f.FunctionCode)

	_, err = ReadRegistersRequest(1, 1, types.RegisterClassRead, 0, 126)
	assert.Error(t, err)
	_, err = ReadRegistersRequest(1, 1, types.RegisterClassRead, 0, 0)
	assert.Error(t, err)
	_, err = ReadRegistersRequest(1, 1, types.RegisterClassRead, 65500, 100)
	assert.Error(t, err)
}

func TestDecodeFrame_ReadResponse(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x01, 0x04, 0x04, 0x00, 0x0A, 0x04, 0xD2}

	f, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), f.TransactionID)
	assert.Equal(t, uint8(1), f.UnitID)

	regs, err := f.Registers()
	require.NoError(t, err)
	assert.Equal(t, []uint16{10, 1234}, regs)

	// response for a request at the wire offset of 5002 (output_type, daily_energy_yield)
	block, err := f.Block(5001)
	require.NoError(t, err)

	c, err := catalog.StringInverter()
	require.NoError(t, err)
	reg, ok := c.Lookup(types.RegisterClassRead, "daily_energy_yield")
	require.True(t, ok)

	v, err := decoder.DecodeRegister(reg, []decoder.Block{block})
	require.NoError(t, err)
	assert.InDelta(t, 123.4, *v.Number, 1e-9)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"short", []byte{0x00, 0x01, 0x00}},
		{"protocol", []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x02, 0x01, 0x04}},
		{"length", []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x09, 0x01, 0x04, 0x02, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.raw)
			assert.True(t, errors.Is(err, ErrMalformedFrame))
		})
	}

	f, err := DecodeFrame([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01, 0x04, 0x03, 0x00, 0x01})
	require.NoError(t, err)
	_, err = f.Registers()
	assert.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestDecodeFrame_Exception(t *testing.T) {
	f, err := DecodeFrame([]byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x01, 0x84, 0x02})
	require.NoError(t, err)

	_, err = f.Registers()
	var exc *ExceptionError
	require.True(t, errors.As(err, &exc))
	assert.Equal(t, uint8(0x04), exc.FunctionCode)
	assert.Equal(t, uint8(0x02), exc.Code)
	assert.Contains(t, err.Error(), "illegal data address")
}

func TestWriteRegistersRequest(t *testing.T) {
	f, err := WriteRegistersRequest(1, 1, 5007, []uint16{1000})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x06, 0x13, 0x8F, 0x03, 0xE8}, f.Encode())

	f, err = WriteRegistersRequest(2, 1, 5030, []uint16{0x0001, 0x0002})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x00, 0x02, 0x00, 0x00, 0x00, 0x0B, 0x01, 0x10,
		0x13, 0xA6, 0x00, 0x02, 0x04, 0x00, 0x01, 0x00, 0x02,
	}, f.Encode())

	_, err = WriteRegistersRequest(1, 1, 0, nil)
	assert.Error(t, err)
}

func TestPlanReads(t *testing.T) {
	c, err := catalog.StringInverter()
	require.NoError(t, err)

	reads, err := PlanReads(c, types.RegisterClassRead, 1, 10)
	require.NoError(t, err)
	require.Len(t, reads, len(c.ScanRanges(types.RegisterClassRead)))

	for i, r := range reads {
		assert.Equal(t, uint16(10+i), r.Frame.TransactionID)
		assert.Equal(t, uint8(FuncCodeReadInputRegisters), r.Frame.FunctionCode)
	}
	assert.Equal(t, types.ScanRange{Start: 4999, Count: 110}, reads[0].Range)

	holding, err := PlanReads(c, types.RegisterClassHolding, 1, 1)
	require.NoError(t, err)
	for _, r := range holding {
		assert.Equal(t, uint8(FuncCodeReadHoldingRegisters), r.Frame.FunctionCode)
	}
}
