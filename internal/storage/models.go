package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/umthana/SungrowInverter/internal/types"
)

// DeviceProfile is a row of device_profiles.
type DeviceProfile struct {
	ID          uuid.UUID `json:"id"`
	ProfileName string    `json:"profile_name"`
	Vendor      string    `json:"vendor"`
	Model       string    `json:"model"`
	Definition  []byte    `json:"definition"` // JSONB
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newDeviceProfile(p *types.InverterProfile) (*DeviceProfile, error) {
	if p.DeviceProfile.ID == "" {
		return nil, fmt.Errorf("profile has no id")
	}

	definition, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	return &DeviceProfile{
		ID:          uuid.New(),
		ProfileName: p.DeviceProfile.ID,
		Vendor:      p.DeviceProfile.Vendor,
		Model:       p.DeviceProfile.Model,
		Definition:  definition,
	}, nil
}

// Profile decodes the stored definition.
func (d *DeviceProfile) Profile() (*types.InverterProfile, error) {
	var p types.InverterProfile
	if err := json.Unmarshal(d.Definition, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", d.ProfileName, err)
	}
	return &p, nil
}
