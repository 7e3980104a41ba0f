package decoder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

// Skip records a register left out of a pass because its words were
// not supplied.
type Skip struct {
	Name    string `json:"name"`
	Address uint16 `json:"address"`
	Reason  string `json:"reason"`
}

// Result is the output of one decode pass. It is owned by the caller.
type Result struct {
	Class   types.RegisterClass `json:"class"`
	Model   string              `json:"model"`
	Values  []Value             `json:"values"`
	Skipped []Skip              `json:"skipped"`
}

// Map returns name -> decoded value.
func (r Result) Map() map[string]any {
	out := make(map[string]any, len(r.Values))
	for _, v := range r.Values {
		out[v.Name] = v.Interface()
	}
	return out
}

// Get returns the decoded value of name.
func (r Result) Get(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Decoder runs decode passes against one catalog. It keeps no state
// between passes.
type Decoder struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func New(c *catalog.Catalog, logger *zap.Logger) *Decoder {
	return &Decoder{
		catalog: c,
		logger:  logger,
	}
}

// Decode decodes every register of class that applies under f from the
// supplied blocks, in catalog order. Registers whose span is not covered
// are skipped; the pass never aborts.
func (d *Decoder) Decode(class types.RegisterClass, f catalog.ModelFilter, blocks []Block) Result {
	regs := d.catalog.Registers(class, f)
	res := Result{
		Class:   class,
		Model:   f.String(),
		Values:  make([]Value, 0, len(regs)),
		Skipped: []Skip{},
	}

	for _, reg := range regs {
		v, err := DecodeRegister(reg, blocks)
		if err != nil {
			if !errors.Is(err, catalog.ErrOutOfRange) {
				d.logger.Error("Register decode failed",
					zap.String("register", reg.Name()),
					zap.Error(err))
			}
			res.Skipped = append(res.Skipped, Skip{Name: reg.Name(), Address: reg.Address(), Reason: err.Error()})
			continue
		}
		if v.Unknown {
			d.logger.Warn("Unknown code, using raw value",
				zap.String("register", reg.Name()),
				zap.Int64("raw", v.Raw))
		}
		res.Values = append(res.Values, v)
	}

	d.logger.Debug("Decode pass complete",
		zap.String("class", string(class)),
		zap.String("model", res.Model),
		zap.Int("decoded", len(res.Values)),
		zap.Int("skipped", len(res.Skipped)))

	return res
}

// DecodeRegister decodes a single register from blocks.
func DecodeRegister(reg catalog.Register, blocks []Block) (Value, error) {
	words, err := span(blocks, reg.Offset(), reg.Words())
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", reg.Name(), err)
	}

	// high word first
	var bits uint32
	for _, w := range words {
		bits = bits<<16 | uint32(w)
	}

	v := Value{
		Name:    reg.Name(),
		Address: reg.Address(),
		Type:    reg.DataType(),
		Unit:    reg.Unit(),
	}

	switch reg.DataType() {
	case types.DataTypeS16:
		v.Raw = int64(int16(uint16(bits)))
	case types.DataTypeS32:
		v.Raw = int64(int32(bits))
	case types.DataTypeBinary:
		if n := reg.Length(); n < 32 {
			bits &= 1<<uint(n) - 1
		}
		v.Raw = int64(bits)
	default:
		v.Raw = int64(bits)
	}

	switch t := reg.Table().(type) {
	case *catalog.FlagTable:
		v.Labels = catalog.DecodeBitfieldLabels(t, bits)
	case *catalog.LabelTable:
		label, err := catalog.DecodeSingleLabel(t, bits)
		if err != nil {
			if !errors.Is(err, catalog.ErrUnknownCode) {
				return Value{}, err
			}
			raw := float64(v.Raw)
			v.Number = &raw
			v.Unknown = true
			break
		}
		v.Label = label
	default:
		scale, _ := reg.Scale()
		n := float64(v.Raw) * scale
		v.Number = &n
	}

	return v, nil
}
