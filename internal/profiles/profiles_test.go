package profiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

func stringProfile(t *testing.T) types.InverterProfile {
	t.Helper()
	c, err := catalog.StringInverter()
	require.NoError(t, err)
	return Export(c)
}

func encode(t *testing.T, p types.InverterProfile, format Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p, format))
	return buf.Bytes()
}

func TestExport_Shape(t *testing.T) {
	p := stringProfile(t)

	assert.Equal(t, "sungrow-string", p.DeviceProfile.ID)
	assert.Len(t, p.Registers, 118+33)
	assert.Len(t, p.CodeTables, 6)
	require.Len(t, p.ScanRanges, 2)
	assert.Equal(t, types.RegisterClassRead, p.ScanRanges[0].Class)

	for _, tbl := range p.CodeTables {
		if tbl.Name == catalog.TableWorkStateFlags {
			assert.Equal(t, types.TableKindBitfield, tbl.Kind)
			assert.Equal(t, 19, tbl.Width)
		}
	}
}

func TestExportBuild_RoundTripJSON(t *testing.T) {
	p := stringProfile(t)
	data := encode(t, p, FormatJSON)

	v, err := NewValidator()
	require.NoError(t, err)
	require.NoError(t, v.ValidateProfile(data))

	var back types.InverterProfile
	require.NoError(t, json.Unmarshal(data, &back))

	c, err := Build(&back)
	require.NoError(t, err)
	assert.Equal(t, p, Export(c))

	rep := catalog.Validate(c)
	assert.True(t, rep.Valid)

	meter, ok := c.Lookup(types.RegisterClassRead, "meter_power")
	require.True(t, ok)
	assert.True(t, meter.AppliesTo(catalog.ForModel(0x013C)))
	assert.False(t, meter.AppliesTo(catalog.ForModel(0x2436)))
}

func TestProfileLoader_YAML(t *testing.T) {
	p := stringProfile(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sungrow.yaml")
	require.NoError(t, os.WriteFile(path, encode(t, p, FormatYAML), 0o644))

	l, err := NewProfileLoader(nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	loaded, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, *loaded)
}

func TestProfileLoader_SearchPathsAndCache(t *testing.T) {
	p := stringProfile(t)
	empty, dir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.json"), encode(t, p, FormatJSON), 0o644))

	l, err := NewProfileLoader([]string{empty, dir}, zaptest.NewLogger(t))
	require.NoError(t, err)

	first, err := l.Load("custom")
	require.NoError(t, err)
	second, err := l.Load("custom")
	require.NoError(t, err)
	assert.Same(t, first, second)

	l.ClearCache()
	third, err := l.Load("custom")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, *first, *third)

	_, err = l.Load("missing")
	assert.Error(t, err)
}

func TestValidator_Rejects(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	base := func() map[string]any {
		return map[string]any{
			"device_profile": map[string]any{"id": "test", "vendor": "Sungrow", "model": "SG"},
			"code_tables": []any{
				map[string]any{"name": "flags", "kind": "bitfield", "width": 19, "entries": []any{}},
			},
			"registers": []any{
				map[string]any{"name": "daily", "address": 5003, "class": "read", "data_type": "U16", "scale_factor": 0.1},
			},
			"scan_ranges": []any{
				map[string]any{"class": "read", "ranges": []any{map[string]any{"scan_start": 4999, "scan_range": 110}}},
			},
		}
	}
	register := func(doc map[string]any) map[string]any {
		return doc["registers"].([]any)[0].(map[string]any)
	}

	data, err := json.Marshal(base())
	require.NoError(t, err)
	require.NoError(t, v.ValidateProfile(data))

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing registers", func(d map[string]any) { delete(d, "registers") }},
		{"unknown data type", func(d map[string]any) { register(d)["data_type"] = "F32" }},
		{"address zero", func(d map[string]any) { register(d)["address"] = 0 }},
		{"table and scale", func(d map[string]any) { register(d)["table"] = "flags" }},
		{"length on U16", func(d map[string]any) { register(d)["length"] = 16 }},
		{"binary without length", func(d map[string]any) {
			r := register(d)
			r["data_type"] = "BINARY"
			delete(r, "scale_factor")
			r["table"] = "flags"
		}},
		{"decimal model id", func(d map[string]any) { register(d)["valid_models"] = []any{"316"} }},
		{"oversized scan range", func(d map[string]any) {
			d["scan_ranges"] = []any{map[string]any{"class": "read", "ranges": []any{map[string]any{"scan_start": 0, "scan_range": 126}}}}
		}},
		{"bitfield without width", func(d map[string]any) {
			d["code_tables"] = []any{map[string]any{"name": "flags", "kind": "bitfield", "entries": []any{}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)
			data, err := json.Marshal(doc)
			require.NoError(t, err)
			assert.Error(t, v.ValidateProfile(data))
		})
	}

	assert.Error(t, v.ValidateProfile([]byte("{not json")))
}

func TestBuild_Rejects(t *testing.T) {
	p := stringProfile(t)
	p.Registers[0].Table = "no_such_table"
	_, err := Build(&p)
	assert.True(t, errors.Is(err, catalog.ErrInvalidDescriptor))

	p = stringProfile(t)
	p.Registers[1].Name = p.Registers[0].Name
	_, err = Build(&p)
	assert.True(t, errors.Is(err, catalog.ErrInvalidDescriptor))

	p = stringProfile(t)
	p.CodeTables[0].Kind = "enum"
	_, err = Build(&p)
	assert.True(t, errors.Is(err, catalog.ErrInvalidDescriptor))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
