package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/umthana/SungrowInverter/internal/auth"
	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/interfaces"
	"github.com/umthana/SungrowInverter/internal/types"
)

type fakeLifecycle struct {
	cfg       *config.Config
	cat       *catalog.Catalog
	dec       *decoder.Decoder
	filter    catalog.ModelFilter
	reloadErr error
	reloads   int
}

func (f *fakeLifecycle) Config() *config.Config             { return f.cfg }
func (f *fakeLifecycle) Catalog() *catalog.Catalog          { return f.cat }
func (f *fakeLifecycle) Decoder() *decoder.Decoder          { return f.dec }
func (f *fakeLifecycle) DefaultFilter() catalog.ModelFilter { return f.filter }
func (f *fakeLifecycle) Shutdown(context.Context) error     { return nil }

func (f *fakeLifecycle) Reload(context.Context) error {
	f.reloads++
	return f.reloadErr
}

func (f *fakeLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{
		State:         "RUNNING",
		Profile:       f.cat.Info().ID,
		ReadRegisters: f.cat.Size(types.RegisterClassRead),
		DefaultModel:  f.filter.String(),
	}
}

func newTestServer(t *testing.T, filter catalog.ModelFilter) (*Server, *fakeLifecycle) {
	t.Helper()
	c, err := catalog.StringInverter()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	lm := &fakeLifecycle{
		cfg:    &config.Config{},
		cat:    c,
		dec:    decoder.New(c, logger),
		filter: filter,
	}
	return NewServer(lm.cfg, lm, logger), lm
}

func do(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = do(t, s, http.MethodOptions, "/api/v1/decode", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	s, lm := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status interfaces.SystemStatus
	decodeJSON(t, rec, &status)
	assert.Equal(t, "RUNNING", status.State)
	assert.Equal(t, 118, status.ReadRegisters)

	rec = do(t, s, http.MethodPost, "/api/v1/system/reload", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, lm.reloads)

	lm.reloadErr = errors.New("boom")
	rec = do(t, s, http.MethodPost, "/api/v1/system/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReload_RequiresToken(t *testing.T) {
	c, err := catalog.StringInverter()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	cfg := &config.Config{Server: config.ServerConfig{JWTSecret: "reload-secret", TokenTTL: time.Hour}}
	lm := &fakeLifecycle{cfg: cfg, cat: c, dec: decoder.New(c, logger), filter: catalog.AnyModel()}
	s := NewServer(cfg, lm, logger)

	rec := do(t, s, http.MethodPost, "/api/v1/system/reload", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, lm.reloads)

	jwtHandler, err := auth.NewJWTHandler("reload-secret", time.Hour)
	require.NoError(t, err)
	token, err := jwtHandler.GenerateToken("ops", auth.ScopeReload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/reload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, lm.reloads)

	// status stays public
	rec = do(t, s, http.MethodGet, "/api/v1/system/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Profile   types.DeviceProfileInfo `json:"profile"`
		Registers map[string]int          `json:"registers"`
		Tables    int                     `json:"tables"`
	}
	decodeJSON(t, rec, &info)
	assert.Equal(t, "sungrow-string", info.Profile.ID)
	assert.Equal(t, 118, info.Registers["read"])
	assert.Equal(t, 33, info.Registers["holding"])
	assert.Equal(t, 6, info.Tables)

	rec = do(t, s, http.MethodGet, "/api/v1/catalog/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report catalog.Report
	decodeJSON(t, rec, &report)
	assert.True(t, report.Valid)
	assert.NotEmpty(t, report.Warnings)

	rec = do(t, s, http.MethodGet, "/api/v1/catalog/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile types.InverterProfile
	decodeJSON(t, rec, &profile)
	assert.Len(t, profile.Registers, 151)

	rec = do(t, s, http.MethodGet, "/api/v1/catalog/profile?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, rec.Body.String(), "device_profile:")

	rec = do(t, s, http.MethodGet, "/api/v1/catalog/profile?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type registerList struct {
	Class     types.RegisterClass        `json:"class"`
	Model     string                     `json:"model"`
	Count     int                        `json:"count"`
	Registers []types.RegisterDefinition `json:"registers"`
}

func hasRegister(list registerList, name string) bool {
	for _, r := range list.Registers {
		if r.Name == name {
			return true
		}
	}
	return false
}

func TestListRegisters(t *testing.T) {
	s, _ := newTestServer(t, catalog.UnknownModel())

	tests := []struct {
		query     string
		model     string
		count     int
		withMeter bool
	}{
		{"", "unknown", 106, false},
		{"?model=any", "any", 118, true},
		{"?model=0x013C", "0x013C", 118, true},
		{"?model=0x2436", "0x2436", 107, false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/v1/registers/read"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var list registerList
			decodeJSON(t, rec, &list)
			assert.Equal(t, types.RegisterClassRead, list.Class)
			assert.Equal(t, tt.model, list.Model)
			assert.Equal(t, tt.count, list.Count)
			assert.Len(t, list.Registers, tt.count)
			assert.Equal(t, tt.withMeter, hasRegister(list, "meter_power"))
		})
	}

	rec := do(t, s, http.MethodGet, "/api/v1/registers/coil", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp types.ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, types.ErrCodeBadRequest, errResp.Error.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/registers/read?model=inverter", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRegister(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/registers/holding/power_factor_setting", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Register types.RegisterDefinition `json:"register"`
		Offset   uint16                   `json:"offset"`
		Words    int                      `json:"words"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, uint16(5019), resp.Register.Address)
	assert.Equal(t, uint16(5018), resp.Offset)
	assert.Equal(t, 1, resp.Words)

	rec = do(t, s, http.MethodGet, "/api/v1/registers/read/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRegister_SlashInName(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	tests := []struct {
		path    string
		name    string
		address uint16
	}{
		{"/api/v1/registers/read/fault/alarm_code", "fault/alarm_code", 5045},
		{"/api/v1/registers/read/fault%2Falarm_code", "fault/alarm_code", 5045},
		{"/api/v1/registers/holding/start%2Fstop", "start/stop", 5006},
		{"/api/v1/registers/holding/local/remote_control", "local/remote_control", 5021},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp struct {
				Register types.RegisterDefinition `json:"register"`
			}
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.name, resp.Register.Name)
			assert.Equal(t, tt.address, resp.Register.Address)
		})
	}
}

func TestScanRanges(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/scan-ranges/input", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Class  types.RegisterClass `json:"class"`
		Ranges []types.ScanRange   `json:"ranges"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, types.RegisterClassRead, resp.Class)
	require.NotEmpty(t, resp.Ranges)
	assert.Equal(t, types.ScanRange{Start: 4999, Count: 110}, resp.Ranges[0])
}

func TestTables(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &list)
	assert.Equal(t, 6, list.Count)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/country", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var country struct {
		Kind    types.TableKind `json:"kind"`
		Aliases []catalog.Alias `json:"aliases"`
	}
	decodeJSON(t, rec, &country)
	assert.Equal(t, types.TableKindSingle, country.Kind)
	assert.Equal(t, []catalog.Alias{{Label: "Poland", Codes: []uint32{32, 34}}}, country.Aliases)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecodeCode(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodGet, "/api/v1/tables/device_work_state/decode?value=0x5500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var label struct {
		Label string `json:"label"`
	}
	decodeJSON(t, rec, &label)
	assert.Equal(t, "Fault", label.Label)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/device_work_state/decode?value=0x9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp types.ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, types.ErrCodeUnknownCode, errResp.Error.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/work_state_flags/decode?value=131073", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var flags struct {
		Labels []string `json:"labels"`
	}
	decodeJSON(t, rec, &flags)
	assert.Equal(t, []string{"status_run", "status_grid_connected"}, flags.Labels)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/work_state_flags/decode?value=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &flags)
	assert.Empty(t, flags.Labels)
	assert.Contains(t, rec.Body.String(), `"labels":[]`)

	rec = do(t, s, http.MethodGet, "/api/v1/tables/country/decode?value=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeBlocks(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodPost, "/api/v1/decode", body{
		"class": "read",
		"model": "0x2436",
		"blocks": []decoder.Block{
			{Start: 5002, Words: []uint16{1234}},
			{Start: 5018, Words: []uint16{2301}},
			{Start: 5037, Words: []uint16{0x9999}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res decoder.Result
	decodeJSON(t, rec, &res)
	assert.Equal(t, types.RegisterClassRead, res.Class)
	assert.Equal(t, "0x2436", res.Model)

	daily, ok := res.Get("daily_energy_yield")
	require.True(t, ok)
	assert.InDelta(t, 123.4, *daily.Number, 1e-9)

	grid, ok := res.Get("grid_voltage")
	require.True(t, ok)
	phaseA, ok := res.Get("phase_a_voltage")
	require.True(t, ok)
	assert.Equal(t, *grid.Number, *phaseA.Number)

	state, ok := res.Get("device_state")
	require.True(t, ok)
	assert.True(t, state.Unknown)

	_, ok = res.Get("meter_power")
	assert.False(t, ok)
	assert.Len(t, res.Values, 4)
	assert.Len(t, res.Skipped, 107-4)
}

func TestDecodeBlocks_EmptyFlagSet(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	rec := do(t, s, http.MethodPost, "/api/v1/decode", body{
		"class":  "read",
		"model":  "0x013C",
		"blocks": []decoder.Block{{Start: 5080, Words: []uint16{0, 0}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Values []map[string]json.RawMessage `json:"values"`
	}
	decodeJSON(t, rec, &raw)
	require.Len(t, raw.Values, 1)
	assert.Equal(t, `"work_state"`, string(raw.Values[0]["name"]))
	assert.Equal(t, `[]`, string(raw.Values[0]["labels"]))
	assert.NotContains(t, raw.Values[0], "value")
}

func TestDecodeBlocks_BadRequest(t *testing.T) {
	s, _ := newTestServer(t, catalog.AnyModel())

	tests := []struct {
		name string
		body any
	}{
		{"missing class", body{"blocks": []any{}}},
		{"bad class", body{"class": "coil", "blocks": []any{}}},
		{"bad model", body{"class": "read", "model": "x", "blocks": []any{}}},
		{"word overflow", body{"class": "read", "blocks": []any{body{"start": 1, "words": []int{70000}}}}},
		{"block overflow", body{"class": "read", "blocks": []any{body{"start": 65535, "words": []int{1, 2}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/decode", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var errResp types.ErrorResponse
			decodeJSON(t, rec, &errResp)
			assert.Equal(t, types.ErrCodeDecodeFailed, errResp.Error.Code)
		})
	}
}

type body = map[string]any
