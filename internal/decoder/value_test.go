package decoder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umthana/SungrowInverter/internal/types"
)

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		register string
		block    Block
		has      []string
		lacks    []string
	}{
		{"empty flag set", "work_state", at(5081, 0, 0), []string{`"labels":[]`, `"raw":0`}, []string{`"value"`, `"label"`}},
		{"flags", "work_state", at(5081, 0, 1), []string{`"labels":["status_run"]`}, []string{`"value"`}},
		{"number", "daily_energy_yield", at(5003, 1234), []string{`"value":123.4`, `"unit":"kWh"`}, []string{`"labels"`, `"label"`}},
		{"label", "output_type", at(5002, 2), []string{`"label":"3P3L"`}, []string{`"labels"`, `"value"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DecodeRegister(lookup(t, types.RegisterClassRead, tt.register), []Block{tt.block})
			require.NoError(t, err)

			data, err := json.Marshal(v)
			require.NoError(t, err)
			for _, s := range tt.has {
				assert.Contains(t, string(data), s)
			}
			for _, s := range tt.lacks {
				assert.NotContains(t, string(data), s)
			}
		})
	}
}

func TestValue_JSONRoundTripKeepsEmptySet(t *testing.T) {
	v, err := DecodeRegister(lookup(t, types.RegisterClassRead, "work_state"), []Block{at(5081, 0, 0)})
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.NotNil(t, back.Labels)
	assert.Empty(t, back.Labels)
	assert.Equal(t, []string{}, back.Interface())
}
