package db

import (
	"context"
	"time"

	"tanaw/internal/types"
)

// DeviceRepo provides data access for the device_registrations table.
// Registration is an upsert keyed by device ID: re-registering refreshes the
// push token and last known location instead of accumulating rows.
type DeviceRepo struct {
	db DBTX
}

// NewDeviceRepo creates a DeviceRepo backed by the given database connection
// (pool or transaction).
func NewDeviceRepo(db DBTX) *DeviceRepo {
	return &DeviceRepo{db: db}
}

// EnsureSchema creates the device_registrations table if it does not exist.
func (r *DeviceRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS device_registrations (
			device_id TEXT PRIMARY KEY,
			push_token TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure device_registrations schema", err)
	}
	return nil
}

// Upsert inserts or refreshes a device registration. A zero UpdatedAt is
// stamped with the current UTC time.
func (r *DeviceRepo) Upsert(ctx context.Context, reg *types.DeviceRegistration) error {
	if reg.UpdatedAt.IsZero() {
		reg.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO device_registrations (device_id, push_token, latitude, longitude, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (device_id) DO UPDATE SET
			push_token = EXCLUDED.push_token,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = EXCLUDED.updated_at`,
		reg.DeviceID,
		reg.PushToken,
		reg.Latitude,
		reg.Longitude,
		reg.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert device registration", err)
	}
	return nil
}

// List returns all registrations, most recently updated first. The
// evaluation worker iterates this to know which locations to evaluate.
func (r *DeviceRepo) List(ctx context.Context) ([]types.DeviceRegistration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT device_id, push_token, latitude, longitude, updated_at
		 FROM device_registrations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query device registrations", err)
	}
	defer rows.Close()

	var results []types.DeviceRegistration
	for rows.Next() {
		var reg types.DeviceRegistration
		if err := rows.Scan(&reg.DeviceID, &reg.PushToken, &reg.Latitude, &reg.Longitude, &reg.UpdatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan device registration row", err)
		}
		results = append(results, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating device registration rows", err)
	}
	return results, nil
}

// Delete removes a device registration. Unknown IDs are not an error.
func (r *DeviceRepo) Delete(ctx context.Context, deviceID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM device_registrations WHERE device_id = $1`, deviceID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete device registration", err)
	}
	return nil
}
