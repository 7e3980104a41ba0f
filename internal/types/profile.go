package types

// InverterProfile is the file/database representation of a register catalog.
type InverterProfile struct {
	DeviceProfile DeviceProfileInfo     `json:"device_profile" yaml:"device_profile"`
	CodeTables    []CodeTableDefinition `json:"code_tables" yaml:"code_tables"`
	Registers     []RegisterDefinition  `json:"registers" yaml:"registers"`
	ScanRanges    []ScanRangeGroup      `json:"scan_ranges" yaml:"scan_ranges"`
}

type DeviceProfileInfo struct {
	ID          string `json:"id" yaml:"id"`
	Vendor      string `json:"vendor" yaml:"vendor"`
	Model       string `json:"model" yaml:"model"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

type TableKind string

const (
	TableKindSingle   TableKind = "single"
	TableKindBitfield TableKind = "bitfield"
)

type CodeTableDefinition struct {
	Name string    `json:"name" yaml:"name"`
	Kind TableKind `json:"kind" yaml:"kind"`
	// Width is the number of significant bits of a bitfield table.
	Width   int         `json:"width,omitempty" yaml:"width,omitempty"`
	Entries []CodeEntry `json:"entries" yaml:"entries"`
}

// CodeEntry maps a code to a label. For bitfield tables Code is the bit position.
type CodeEntry struct {
	Code  uint32 `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

type RegisterDefinition struct {
	Name        string        `json:"name" yaml:"name"`
	Address     uint16        `json:"address" yaml:"address"`
	Class       RegisterClass `json:"class" yaml:"class"`
	DataType    DataType      `json:"data_type" yaml:"data_type"`
	ScaleFactor *float64      `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
	Unit        string        `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Length      int           `json:"length,omitempty" yaml:"length,omitempty"`
	Table       string        `json:"table,omitempty" yaml:"table,omitempty"`
	ValidModels []ModelID     `json:"valid_models,omitempty" yaml:"valid_models,omitempty"`
}

type ScanRangeGroup struct {
	Class  RegisterClass `json:"class" yaml:"class"`
	Ranges []ScanRange   `json:"ranges" yaml:"ranges"`
}
