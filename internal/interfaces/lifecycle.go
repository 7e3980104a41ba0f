package interfaces

import (
	"context"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/decoder"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	Profile          string `json:"profile"`
	Source           string `json:"source"`
	ReadRegisters    int    `json:"read_registers"`
	HoldingRegisters int    `json:"holding_registers"`
	CatalogValid     bool   `json:"catalog_valid"`
	DefaultModel     string `json:"default_model"`
	Timestamp        int64  `json:"timestamp"`
}

// LifecycleManager is what the API layer needs from the running system.
type LifecycleManager interface {
	Config() *config.Config
	Catalog() *catalog.Catalog
	Decoder() *decoder.Decoder
	DefaultFilter() catalog.ModelFilter
	GetCurrentStatus() SystemStatus
	Reload(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
