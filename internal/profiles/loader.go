package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/umthana/SungrowInverter/internal/types"
)

var extensions = []string{".json", ".yaml", ".yml"}

// ProfileLoader reads profile files, validates them against the embedded
// schema and caches the result per name.
type ProfileLoader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
	logger      *zap.Logger
}

func NewProfileLoader(searchPaths []string, logger *zap.Logger) (*ProfileLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &ProfileLoader{
		validator:   validator,
		searchPaths: searchPaths,
		logger:      logger,
	}, nil
}

// Load returns the profile called name. name is either a file path with
// extension or a bare name looked up in the search paths.
func (l *ProfileLoader) Load(name string) (*types.InverterProfile, error) {
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*types.InverterProfile), nil
	}

	path, data, err := l.find(name)
	if err != nil {
		return nil, err
	}

	profile, err := l.parse(path, data)
	if err != nil {
		return nil, err
	}

	l.cache.Store(name, profile)
	l.logger.Info("Profile loaded",
		zap.String("profile", profile.DeviceProfile.ID),
		zap.String("path", path),
		zap.Int("registers", len(profile.Registers)))

	return profile, nil
}

func (l *ProfileLoader) find(name string) (string, []byte, error) {
	if ext := filepath.Ext(name); ext != "" {
		data, err := os.ReadFile(name)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read profile: %w", err)
		}
		return name, data, nil
	}

	for _, searchPath := range l.searchPaths {
		for _, ext := range extensions {
			fullPath := filepath.Join(searchPath, name+ext)
			data, err := os.ReadFile(fullPath)
			if err == nil {
				return fullPath, data, nil
			}
		}
	}

	return "", nil, fmt.Errorf("profile not found: %s (searched in: %v)", name, l.searchPaths)
}

func (l *ProfileLoader) parse(path string, data []byte) (*types.InverterProfile, error) {
	var profile types.InverterProfile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile %s: %w", path, err)
		}
		if err := l.validator.ValidateProfileDefinition(&profile); err != nil {
			return nil, fmt.Errorf("validation failed for %s: %w", path, err)
		}
	default:
		if err := l.validator.ValidateProfile(data); err != nil {
			return nil, fmt.Errorf("validation failed for %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile %s: %w", path, err)
		}
	}

	return &profile, nil
}

func (l *ProfileLoader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}
