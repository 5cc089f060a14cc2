package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tanaw/internal/types"
)

// ReportRepo provides data access for the hazard_reports table.
type ReportRepo struct {
	db DBTX
}

// NewReportRepo creates a ReportRepo backed by the given database connection
// (pool or transaction).
func NewReportRepo(db DBTX) *ReportRepo {
	return &ReportRepo{db: db}
}

const reportColumns = `id, device_id, hazard_type, description, image_url,
	latitude, longitude, created_at`

// EnsureSchema creates the hazard_reports table if it does not exist.
func (r *ReportRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS hazard_reports (
			id UUID PRIMARY KEY,
			device_id TEXT NOT NULL,
			hazard_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure hazard_reports schema", err)
	}
	return nil
}

// Create inserts a new hazard report. A missing ID is generated; a zero
// CreatedAt is stamped with the current UTC time.
func (r *ReportRepo) Create(ctx context.Context, report *types.HazardReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO hazard_reports (id, device_id, hazard_type, description,
		 image_url, latitude, longitude, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.ID,
		report.DeviceID,
		report.HazardType,
		report.Description,
		nilIfEmptyString(report.ImageURL),
		report.Latitude,
		report.Longitude,
		report.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create hazard report", err)
	}
	return nil
}

// GetByID retrieves one hazard report.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*types.HazardReport, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM hazard_reports WHERE id = $1`, id)

	report, err := scanReportRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundReport, "hazard report not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve hazard report", err)
	}
	return report, nil
}

// ListRecent returns the most recent reports, newest-first, capped at limit.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]*types.HazardReport, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM hazard_reports
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query hazard reports", err)
	}
	defer rows.Close()

	var results []*types.HazardReport
	for rows.Next() {
		report, scanErr := scanReport(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan hazard report row", scanErr)
		}
		results = append(results, report)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating hazard report rows", err)
	}
	return results, nil
}

// scanReport scans a report from pgx.Rows. Column order must match
// reportColumns.
func scanReport(rows pgx.Rows) (*types.HazardReport, error) {
	var report types.HazardReport
	var imageURL *string
	err := rows.Scan(
		&report.ID,
		&report.DeviceID,
		&report.HazardType,
		&report.Description,
		&imageURL,
		&report.Latitude,
		&report.Longitude,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if imageURL != nil {
		report.ImageURL = *imageURL
	}
	return &report, nil
}

// scanReportRow scans a report from a single pgx.Row (for QueryRow).
func scanReportRow(row pgx.Row) (*types.HazardReport, error) {
	var report types.HazardReport
	var imageURL *string
	err := row.Scan(
		&report.ID,
		&report.DeviceID,
		&report.HazardType,
		&report.Description,
		&imageURL,
		&report.Latitude,
		&report.Longitude,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if imageURL != nil {
		report.ImageURL = *imageURL
	}
	return &report, nil
}

// nilIfEmptyString returns nil for empty strings, for nullable TEXT columns.
func nilIfEmptyString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
