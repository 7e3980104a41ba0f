package catalog

import (
	"fmt"
	"sort"

	"github.com/umthana/SungrowInverter/internal/types"
)

// AddressBase is the number of the first documented register. Vendor
// documents count from 1; the wire offset of register N is N-AddressBase.
const AddressBase = 1

// RegisterSpec is the input to Define.
type RegisterSpec struct {
	Class       types.RegisterClass
	Address     uint16
	Name        string
	DataType    types.DataType
	Scale       *float64
	Unit        string
	Description string
	// Length overrides the implied width. Only BINARY accepts it and
	// counts bits, not words.
	Length int
	Table  CodeTable
	Models []types.ModelID
}

// Register describes one physical register or multi-register value.
// It is immutable once defined.
type Register struct {
	class       types.RegisterClass
	address     uint16
	name        string
	dataType    types.DataType
	scale       *float64
	unit        string
	description string
	length      int
	table       CodeTable
	models      []types.ModelID
}

// Define validates spec and returns the register it describes.
func Define(spec RegisterSpec) (Register, error) {
	invalid := func(format string, args ...any) (Register, error) {
		return Register{}, fmt.Errorf("%w: %s at %d: %s", ErrInvalidDescriptor, spec.Name, spec.Address, fmt.Sprintf(format, args...))
	}

	if spec.Name == "" {
		return invalid("name is required")
	}
	if spec.Class != types.RegisterClassRead && spec.Class != types.RegisterClassHolding {
		return invalid("unknown register class %q", spec.Class)
	}
	if !spec.DataType.Valid() {
		return invalid("unrecognized data type %q", spec.DataType)
	}
	if spec.Address < AddressBase {
		return invalid("address must be >= %d", AddressBase)
	}
	if spec.Table != nil && spec.Scale != nil {
		return invalid("code table and scale factor are mutually exclusive")
	}
	if spec.Scale != nil && *spec.Scale == 0 {
		return invalid("scale factor must not be zero")
	}

	words := spec.DataType.Words()
	if spec.DataType == types.DataTypeBinary {
		if spec.Length < 1 || spec.Length > 32 {
			return invalid("BINARY requires a bit length in 1..32, got %d", spec.Length)
		}
		flags, ok := spec.Table.(*FlagTable)
		if !ok {
			return invalid("BINARY requires a bitfield code table")
		}
		if flags.Width() > spec.Length {
			return invalid("bitfield table %s is %d bits wide, register holds %d", flags.Name(), flags.Width(), spec.Length)
		}
		if spec.Scale != nil {
			return invalid("BINARY values are not scaled")
		}
		words = (spec.Length + 15) / 16
	} else {
		if spec.Length != 0 {
			return invalid("length override is only valid for BINARY, not %s", spec.DataType)
		}
		if spec.Table != nil && spec.Table.Kind() != types.TableKindSingle {
			return invalid("bitfield table %s needs a BINARY register", spec.Table.Name())
		}
	}

	if uint32(spec.Address-AddressBase)+uint32(words) > 1<<16 {
		return invalid("span of %d words overflows the address space", words)
	}

	var models []types.ModelID
	if len(spec.Models) > 0 {
		models = append(models, spec.Models...)
		sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	}

	var scale *float64
	if spec.Scale != nil {
		s := *spec.Scale
		scale = &s
	}

	return Register{
		class:       spec.Class,
		address:     spec.Address,
		name:        spec.Name,
		dataType:    spec.DataType,
		scale:       scale,
		unit:        spec.Unit,
		description: spec.Description,
		length:      spec.Length,
		table:       spec.Table,
		models:      models,
	}, nil
}

func (r Register) Class() types.RegisterClass { return r.class }

// Address is the documented (1-based) register number.
func (r Register) Address() uint16 { return r.address }

// Offset is the zero-based wire offset of the first word.
func (r Register) Offset() uint16 { return r.address - AddressBase }

func (r Register) Name() string { return r.name }

func (r Register) DataType() types.DataType { return r.dataType }

func (r Register) Unit() string { return r.unit }

func (r Register) Description() string { return r.description }

// Length is the BINARY bit length, 0 for other types.
func (r Register) Length() int { return r.length }

// Words is the number of consecutive registers the value occupies.
func (r Register) Words() int {
	if r.dataType == types.DataTypeBinary {
		return (r.length + 15) / 16
	}
	return r.dataType.Words()
}

// Scale returns the scale factor and whether one was declared.
func (r Register) Scale() (float64, bool) {
	if r.scale == nil {
		return 1, false
	}
	return *r.scale, true
}

func (r Register) Table() CodeTable { return r.table }

// Models returns the model allow-list; nil means every model.
func (r Register) Models() []types.ModelID {
	if r.models == nil {
		return nil
	}
	return append([]types.ModelID(nil), r.models...)
}

func (r Register) Restricted() bool { return len(r.models) > 0 }

// AppliesTo reports whether the register is decoded under filter f.
func (r Register) AppliesTo(f ModelFilter) bool {
	if !r.Restricted() {
		return true
	}
	if !f.known {
		return f.optimistic
	}
	i := sort.Search(len(r.models), func(i int) bool { return r.models[i] >= f.id })
	return i < len(r.models) && r.models[i] == f.id
}

// Definition returns the profile representation of r.
func (r Register) Definition() types.RegisterDefinition {
	d := types.RegisterDefinition{
		Name:        r.name,
		Address:     r.address,
		Class:       r.class,
		DataType:    r.dataType,
		Unit:        r.unit,
		Description: r.description,
		Length:      r.length,
		ValidModels: r.Models(),
	}
	if r.scale != nil {
		s := *r.scale
		d.ScaleFactor = &s
	}
	if r.table != nil {
		d.Table = r.table.Name()
	}
	return d
}

// ModelFilter selects registers by the active device model.
type ModelFilter struct {
	id         types.ModelID
	known      bool
	optimistic bool
}

// ForModel filters by a reported model ID.
func ForModel(id types.ModelID) ModelFilter {
	return ModelFilter{id: id, known: true}
}

// AnyModel is used while the model is unknown and keeps model-restricted
// registers (optimistic decoding).
func AnyModel() ModelFilter {
	return ModelFilter{optimistic: true}
}

// UnknownModel is used while the model is unknown and drops
// model-restricted registers.
func UnknownModel() ModelFilter {
	return ModelFilter{}
}

// Model returns the model ID and whether it is known.
func (f ModelFilter) Model() (types.ModelID, bool) {
	return f.id, f.known
}

func (f ModelFilter) String() string {
	switch {
	case f.known:
		return f.id.String()
	case f.optimistic:
		return "any"
	default:
		return "unknown"
	}
}
