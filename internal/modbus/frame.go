package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/types"
)

// Frame is a Modbus TCP ADU: MBAP header (7 bytes), function code, data.
type Frame struct {
	TransactionID uint16 // request/response correlation
	ProtocolID    uint16 // always 0x0000
	Length        uint16 // bytes following the length field
	UnitID        uint8
	FunctionCode  uint8
	Data          []byte
}

const (
	FuncCodeReadHoldingRegisters   = types.FuncCodeReadHoldingRegisters
	FuncCodeReadInputRegisters     = types.FuncCodeReadInputRegisters
	FuncCodeWriteSingleRegister    = 0x06
	FuncCodeWriteMultipleRegisters = 0x10

	exceptionBit = 0x80
	mbapLen      = 7
)

// Protocol limits on register quantities per request.
const (
	MaxReadQuantity  = 125
	MaxWriteQuantity = 123
)

var ErrMalformedFrame = errors.New("malformed modbus frame")

// ExceptionError is a Modbus exception response.
type ExceptionError struct {
	FunctionCode uint8
	Code         uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception 0x%02X on function 0x%02X (%s)", e.Code, e.FunctionCode, exceptionText(e.Code))
}

func exceptionText(code uint8) string {
	switch code {
	case 0x01:
		return "illegal function"
	case 0x02:
		return "illegal data address"
	case 0x03:
		return "illegal data value"
	case 0x04:
		return "server device failure"
	case 0x06:
		return "server device busy"
	case 0x0B:
		return "gateway target failed to respond"
	default:
		return "unknown"
	}
}

// Encode builds the complete TCP ADU and sets Length.
func (f *Frame) Encode() []byte {
	f.Length = uint16(len(f.Data) + 2) // unit ID + function code

	frame := make([]byte, mbapLen+1+len(f.Data))
	binary.BigEndian.PutUint16(frame[0:2], f.TransactionID)
	binary.BigEndian.PutUint16(frame[2:4], f.ProtocolID)
	binary.BigEndian.PutUint16(frame[4:6], f.Length)
	frame[6] = f.UnitID
	frame[7] = f.FunctionCode
	copy(frame[8:], f.Data)

	return frame
}

// DecodeFrame parses a received ADU.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < mbapLen+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(data))
	}

	frame := &Frame{
		TransactionID: binary.BigEndian.Uint16(data[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(data[2:4]),
		Length:        binary.BigEndian.Uint16(data[4:6]),
		UnitID:        data[6],
		FunctionCode:  data[7],
	}

	if frame.ProtocolID != 0x0000 {
		return nil, fmt.Errorf("%w: protocol ID 0x%04X", ErrMalformedFrame, frame.ProtocolID)
	}
	if int(frame.Length) != len(data)-6 {
		return nil, fmt.Errorf("%w: length field %d, %d bytes follow", ErrMalformedFrame, frame.Length, len(data)-6)
	}

	if len(data) > mbapLen+1 {
		frame.Data = append([]byte(nil), data[mbapLen+1:]...)
	}

	return frame, nil
}

// ReadRegistersRequest builds a read for class: FC3 for holding registers,
// FC4 for input (read) registers. start is the zero-based wire offset.
func ReadRegistersRequest(transactionID uint16, unitID uint8, class types.RegisterClass, start, quantity uint16) (*Frame, error) {
	if quantity == 0 || quantity > MaxReadQuantity {
		return nil, fmt.Errorf("read quantity %d outside 1..%d", quantity, MaxReadQuantity)
	}
	if uint32(start)+uint32(quantity) > 1<<16 {
		return nil, fmt.Errorf("read %d+%d overflows the address space", start, quantity)
	}

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], quantity)

	return &Frame{
		TransactionID: transactionID,
		ProtocolID:    0x0000,
		UnitID:        unitID,
		FunctionCode:  class.FunctionCode(),
		Data:          data,
	}, nil
}

// WriteRegistersRequest builds FC6 for a single word and FC16 otherwise.
func WriteRegistersRequest(transactionID uint16, unitID uint8, start uint16, values []uint16) (*Frame, error) {
	if len(values) == 0 || len(values) > MaxWriteQuantity {
		return nil, fmt.Errorf("write quantity %d outside 1..%d", len(values), MaxWriteQuantity)
	}

	if len(values) == 1 {
		data := make([]byte, 4)
		binary.BigEndian.PutUint16(data[0:2], start)
		binary.BigEndian.PutUint16(data[2:4], values[0])
		return &Frame{
			TransactionID: transactionID,
			UnitID:        unitID,
			FunctionCode:  FuncCodeWriteSingleRegister,
			Data:          data,
		}, nil
	}

	data := make([]byte, 5+2*len(values))
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[5+2*i:], v)
	}

	return &Frame{
		TransactionID: transactionID,
		UnitID:        unitID,
		FunctionCode:  FuncCodeWriteMultipleRegisters,
		Data:          data,
	}, nil
}

// Exception returns the exception carried by f, or nil.
func (f *Frame) Exception() error {
	if f.FunctionCode&exceptionBit == 0 {
		return nil
	}
	var code uint8
	if len(f.Data) > 0 {
		code = f.Data[0]
	}
	return &ExceptionError{FunctionCode: f.FunctionCode &^ exceptionBit, Code: code}
}

// Registers parses a holding/input register read response.
func (f *Frame) Registers() ([]uint16, error) {
	if err := f.Exception(); err != nil {
		return nil, err
	}
	if f.FunctionCode != FuncCodeReadHoldingRegisters && f.FunctionCode != FuncCodeReadInputRegisters {
		return nil, fmt.Errorf("%w: function 0x%02X is not a register read", ErrMalformedFrame, f.FunctionCode)
	}
	if len(f.Data) < 1 {
		return nil, fmt.Errorf("%w: response too short", ErrMalformedFrame)
	}

	byteCount := int(f.Data[0])
	if byteCount%2 != 0 || len(f.Data) < byteCount+1 {
		return nil, fmt.Errorf("%w: byte count %d with %d data bytes", ErrMalformedFrame, byteCount, len(f.Data)-1)
	}

	registers := make([]uint16, byteCount/2)
	for i := range registers {
		offset := 1 + i*2
		registers[i] = binary.BigEndian.Uint16(f.Data[offset : offset+2])
	}

	return registers, nil
}

// Block turns a read response for a request starting at start into a
// decoder block.
func (f *Frame) Block(start uint16) (decoder.Block, error) {
	words, err := f.Registers()
	if err != nil {
		return decoder.Block{}, err
	}
	return decoder.Block{Start: start, Words: words}, nil
}
