package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/umthana/SungrowInverter/internal/api/rest"
	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/interfaces"
	"github.com/umthana/SungrowInverter/internal/profiles"
	"github.com/umthana/SungrowInverter/internal/types"
)

const sourceBuiltin = "builtin"

// ProfilePublisher stores catalog profiles. *storage.PostgresClient
// implements it.
type ProfilePublisher interface {
	SaveProfile(ctx context.Context, profile *types.InverterProfile) (uuid.UUID, error)
}

type LifecycleManager struct {
	config    *config.Config
	loader    *profiles.ProfileLoader
	publisher ProfilePublisher
	filter    catalog.ModelFilter
	logger    *zap.Logger

	restServer *rest.Server

	catalogMu sync.RWMutex
	catalog   *catalog.Catalog
	decoder   *decoder.Decoder
	source    string
	valid     bool

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager builds the catalog. A catalog that fails to build
// is a packaging defect and the caller should not start. publisher may
// be nil.
func NewLifecycleManager(cfg *config.Config, publisher ProfilePublisher, logger *zap.Logger) (*LifecycleManager, error) {
	loader, err := profiles.NewProfileLoader(cfg.Catalog.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile loader: %w", err)
	}

	filter, err := FilterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	lm := &LifecycleManager{
		config:       cfg,
		loader:       loader,
		publisher:    publisher,
		filter:       filter,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}

	if err := lm.loadCatalog(); err != nil {
		return nil, err
	}

	return lm, nil
}

// FilterFromConfig returns the model filter used when a request names no
// model.
func FilterFromConfig(cfg *config.Config) (catalog.ModelFilter, error) {
	if cfg.Catalog.DefaultModel != "" {
		id, err := types.ParseModelID(cfg.Catalog.DefaultModel)
		if err != nil {
			return catalog.ModelFilter{}, fmt.Errorf("invalid catalog.default_model: %w", err)
		}
		return catalog.ForModel(id), nil
	}
	if cfg.Decode.Optimistic {
		return catalog.AnyModel(), nil
	}
	return catalog.UnknownModel(), nil
}

func (lm *LifecycleManager) Config() *config.Config { return lm.config }

func (lm *LifecycleManager) Catalog() *catalog.Catalog {
	lm.catalogMu.RLock()
	defer lm.catalogMu.RUnlock()
	return lm.catalog
}

func (lm *LifecycleManager) Decoder() *decoder.Decoder {
	lm.catalogMu.RLock()
	defer lm.catalogMu.RUnlock()
	return lm.decoder
}

func (lm *LifecycleManager) DefaultFilter() catalog.ModelFilter { return lm.filter }

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} { return lm.shutdownChan }

// Start publishes the profile if configured and starts the REST API.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting Sungrow register catalog service")

	if lm.publisher != nil && lm.config.Database.PublishOnStart {
		if err := lm.publish(ctx); err != nil {
			// the API does not depend on the database
			lm.logger.Warn("Failed to publish catalog profile", zap.Error(err))
		}
	}

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger)
	if err := lm.restServer.Start(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	if err := lm.transition(StateRunning); err != nil {
		return err
	}

	c := lm.Catalog()
	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("profile", c.Info().ID),
		zap.String("default_model", lm.filter.String()))

	return nil
}

// Reload rebuilds the catalog from its source. On failure the previous
// catalog stays in service.
func (lm *LifecycleManager) Reload(ctx context.Context) error {
	if err := lm.transition(StateUpdating); err != nil {
		return fmt.Errorf("cannot reload: %w", err)
	}

	lm.loader.ClearCache()
	err := lm.loadCatalog()
	if err != nil {
		lm.logger.Error("Catalog reload failed, keeping previous catalog", zap.Error(err))
	} else if lm.publisher != nil && lm.config.Database.PublishOnStart {
		if perr := lm.publish(ctx); perr != nil {
			lm.logger.Warn("Failed to publish catalog profile", zap.Error(perr))
		}
	}

	if terr := lm.transition(StateRunning); terr != nil {
		return terr
	}
	return err
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		if lm.restServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, lm.config.Server.ShutdownTimeout)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}

		lm.setState(StateStopped)
		close(lm.shutdownChan)
		lm.logger.Info("Graceful shutdown completed")
	})

	return shutdownErr
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lm.stateMu.RUnlock()

	lm.catalogMu.RLock()
	defer lm.catalogMu.RUnlock()

	return interfaces.SystemStatus{
		State:            state.String(),
		Profile:          lm.catalog.Info().ID,
		Source:           lm.source,
		ReadRegisters:    lm.catalog.Size(types.RegisterClassRead),
		HoldingRegisters: lm.catalog.Size(types.RegisterClassHolding),
		CatalogValid:     lm.valid,
		DefaultModel:     lm.filter.String(),
		Timestamp:        time.Now().Unix(),
	}
}

func (lm *LifecycleManager) loadCatalog() error {
	var (
		c      *catalog.Catalog
		source = sourceBuiltin
		err    error
	)

	if path := lm.config.Catalog.ProfilePath; path != "" {
		source = path
		profile, lerr := lm.loader.Load(path)
		if lerr != nil {
			return fmt.Errorf("failed to load profile: %w", lerr)
		}
		c, err = profiles.Build(profile)
	} else {
		c, err = catalog.StringInverter()
	}
	if err != nil {
		return fmt.Errorf("failed to build catalog from %s: %w", source, err)
	}

	report := catalog.Validate(c)
	for _, w := range report.Warnings {
		lm.logger.Debug("Catalog warning",
			zap.String("code", w.Code),
			zap.String("message", w.Message))
	}
	if !report.Valid {
		for _, e := range report.Errors {
			lm.logger.Error("Catalog error",
				zap.String("code", e.Code),
				zap.String("register", e.Register),
				zap.String("message", e.Message))
		}
		return fmt.Errorf("catalog from %s has %d errors", source, len(report.Errors))
	}

	lm.catalogMu.Lock()
	lm.catalog = c
	lm.decoder = decoder.New(c, lm.logger)
	lm.source = source
	lm.valid = report.Valid
	lm.catalogMu.Unlock()

	lm.logger.Info("Catalog loaded",
		zap.String("profile", c.Info().ID),
		zap.String("source", source),
		zap.Int("read_registers", c.Size(types.RegisterClassRead)),
		zap.Int("holding_registers", c.Size(types.RegisterClassHolding)),
		zap.Int("warnings", len(report.Warnings)))

	return nil
}

func (lm *LifecycleManager) publish(ctx context.Context) error {
	profile := profiles.Export(lm.Catalog())
	id, err := lm.publisher.SaveProfile(ctx, &profile)
	if err != nil {
		return err
	}
	lm.logger.Info("Catalog profile published",
		zap.String("profile", profile.DeviceProfile.ID),
		zap.String("row_id", id.String()))
	return nil
}

func (lm *LifecycleManager) transition(to SystemState) error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, to); err != nil {
		return err
	}
	lm.currentState = to
	return nil
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.setState(StateError)
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}
