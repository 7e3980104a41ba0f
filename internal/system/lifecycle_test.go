package system

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/profiles"
	"github.com/umthana/SungrowInverter/internal/types"
)

type fakePublisher struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakePublisher) SaveProfile(_ context.Context, p *types.InverterProfile) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, p.DeviceProfile.ID)
	return uuid.New(), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.HTTPPort = 0
	return cfg
}

func writeProfile(t *testing.T, dir, id string) string {
	t.Helper()
	c, err := catalog.StringInverter()
	require.NoError(t, err)
	p := profiles.Export(c)
	p.DeviceProfile.ID = id

	var buf bytes.Buffer
	require.NoError(t, profiles.Write(&buf, p, profiles.FormatJSON))
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestNewLifecycleManager_Builtin(t *testing.T) {
	lm, err := NewLifecycleManager(testConfig(t), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	status := lm.GetCurrentStatus()
	assert.Equal(t, "INITIALIZING", status.State)
	assert.Equal(t, "sungrow-string", status.Profile)
	assert.Equal(t, sourceBuiltin, status.Source)
	assert.Equal(t, 118, status.ReadRegisters)
	assert.Equal(t, 33, status.HoldingRegisters)
	assert.True(t, status.CatalogValid)
	assert.Equal(t, "any", status.DefaultModel)
	assert.NotNil(t, lm.Decoder())
}

func TestNewLifecycleManager_ProfileFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.ProfilePath = writeProfile(t, t.TempDir(), "site-profile")

	lm, err := NewLifecycleManager(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "site-profile", lm.Catalog().Info().ID)
	assert.Equal(t, cfg.Catalog.ProfilePath, lm.GetCurrentStatus().Source)
}

func TestNewLifecycleManager_BrokenProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.ProfilePath = filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(cfg.Catalog.ProfilePath, []byte(`{"device_profile":{}}`), 0o644))

	_, err := NewLifecycleManager(cfg, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestFilterFromConfig(t *testing.T) {
	cfg := testConfig(t)

	f, err := FilterFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "any", f.String())

	cfg.Decode.Optimistic = false
	f, err = FilterFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "unknown", f.String())

	cfg.Catalog.DefaultModel = "0x013c"
	f, err = FilterFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "0x013C", f.String())

	cfg.Catalog.DefaultModel = "meter"
	_, err = FilterFromConfig(cfg)
	assert.Error(t, err)
}

func TestLifecycle_StartReloadShutdown(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Catalog.ProfilePath = writeProfile(t, dir, "site-profile")
	cfg.Database.PublishOnStart = true
	pub := &fakePublisher{}

	lm, err := NewLifecycleManager(cfg, pub, zaptest.NewLogger(t))
	require.NoError(t, err)

	// nothing to reload before the service runs
	assert.Error(t, lm.Reload(context.Background()))

	require.NoError(t, lm.Start(context.Background()))
	assert.Equal(t, StateRunning, lm.State())
	assert.Equal(t, []string{"site-profile"}, pub.saved)

	before := lm.Catalog()
	require.NoError(t, lm.Reload(context.Background()))
	assert.Equal(t, StateRunning, lm.State())
	assert.NotSame(t, before, lm.Catalog())
	assert.Len(t, pub.saved, 2)

	// a broken file keeps the previous catalog in service
	require.NoError(t, os.WriteFile(cfg.Catalog.ProfilePath, []byte("{"), 0o644))
	current := lm.Catalog()
	assert.Error(t, lm.Reload(context.Background()))
	assert.Same(t, current, lm.Catalog())
	assert.Equal(t, StateRunning, lm.State())

	require.NoError(t, lm.Shutdown(context.Background()))
	assert.Equal(t, StateStopped, lm.State())
	select {
	case <-lm.Done():
	default:
		t.Fatal("Done not closed after shutdown")
	}

	// second shutdown is a no-op
	assert.NoError(t, lm.Shutdown(context.Background()))
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(StateInitializing, StateRunning))
	assert.NoError(t, ValidateTransition(StateRunning, StateUpdating))
	assert.NoError(t, ValidateTransition(StateUpdating, StateRunning))
	assert.Error(t, ValidateTransition(StateInitializing, StateUpdating))
	assert.Error(t, ValidateTransition(StateStopped, StateRunning))
	assert.Error(t, ValidateTransition(SystemState(42), StateRunning))

	assert.Equal(t, "UNKNOWN", SystemState(42).String())
}
