package decoder

import (
	"encoding/json"

	"github.com/umthana/SungrowInverter/internal/types"
)

// Value is one decoded register. Exactly one of Number, Label or Labels
// carries the result, depending on how the register is declared.
type Value struct {
	Name    string         `json:"name"`
	Address uint16         `json:"address"`
	Type    types.DataType `json:"data_type"`
	// Raw is the integer after type reinterpretation, before scaling.
	Raw    int64    `json:"raw"`
	Number *float64 `json:"value,omitempty"`
	Label  string   `json:"label,omitempty"`
	Labels []string `json:"labels,omitempty"`
	// Unknown is set when a single-label table has no entry for Raw;
	// Number then carries the raw code.
	Unknown bool   `json:"unknown,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// Interface returns the decoded physical value: a float64, a label or a
// label set.
func (v Value) Interface() any {
	switch {
	case v.Labels != nil:
		return v.Labels
	case v.Label != "":
		return v.Label
	case v.Number != nil:
		return *v.Number
	}
	return v.Raw
}

// MarshalJSON keeps "labels" for bitfield registers even when no flag is
// set, so an empty set is distinguishable from a numeric value.
func (v Value) MarshalJSON() ([]byte, error) {
	type plain Value
	if v.Labels == nil {
		return json.Marshal(plain(v))
	}
	return json.Marshal(struct {
		plain
		Labels []string `json:"labels"`
	}{plain(v), v.Labels})
}
