package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/umthana/SungrowInverter/internal/types"
)

var ErrProfileNotFound = errors.New("profile not found")

// SaveProfile inserts the profile or replaces the stored definition of
// the same name, returning the row ID.
func (p *PostgresClient) SaveProfile(ctx context.Context, profile *types.InverterProfile) (uuid.UUID, error) {
	row, err := newDeviceProfile(profile)
	if err != nil {
		return uuid.Nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO device_profiles (id, profile_name, vendor, model, definition)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (profile_name)
		DO UPDATE SET
			vendor = EXCLUDED.vendor,
			model = EXCLUDED.model,
			definition = EXCLUDED.definition,
			updated_at = now()
		RETURNING id
	`, row.ID, row.ProfileName, row.Vendor, row.Model, row.Definition).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// LoadProfile returns the stored profile called name.
func (p *PostgresClient) LoadProfile(ctx context.Context, name string) (*types.InverterProfile, error) {
	var row DeviceProfile
	err := p.pool.QueryRow(ctx, `
		SELECT id, profile_name, vendor, model, definition, created_at, updated_at
		FROM device_profiles
		WHERE profile_name = $1
	`, name).Scan(&row.ID, &row.ProfileName, &row.Vendor, &row.Model, &row.Definition, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return row.Profile()
}

// ListProfiles returns the stored rows without their definitions.
func (p *PostgresClient) ListProfiles(ctx context.Context) ([]DeviceProfile, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, profile_name, vendor, model, created_at, updated_at
		FROM device_profiles
		ORDER BY profile_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var out []DeviceProfile
	for rows.Next() {
		var row DeviceProfile
		if err := rows.Scan(&row.ID, &row.ProfileName, &row.Vendor, &row.Model, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// DeleteProfile removes the profile called name.
func (p *PostgresClient) DeleteProfile(ctx context.Context, name string) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM device_profiles WHERE profile_name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}
