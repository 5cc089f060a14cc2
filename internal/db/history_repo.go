package db

import (
	"context"

	"tanaw/internal/types"
)

// HistoryRepo provides data access for the notification_history table.
//
// The table is an append-only log: rows are written once at schedule time
// and removed only by Clear (user-initiated) or DeleteBefore (retention).
// The timestamp column holds the computed trigger time as ISO 8601 text,
// never a native timestamp; readers get back exactly the string that was
// written.
type HistoryRepo struct {
	db DBTX
}

// NewHistoryRepo creates a HistoryRepo backed by the given database
// connection (pool or transaction).
func NewHistoryRepo(db DBTX) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// EnsureSchema creates the notification_history table if it does not exist.
// Called once at startup; safe to call repeatedly.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notification_history (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			"timestamp" TEXT NOT NULL
		)`)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure notification_history schema", err)
	}
	return nil
}

// Append inserts one history row and returns it with the generated ID.
func (r *HistoryRepo) Append(ctx context.Context, title, body, timestamp string) (types.StoredNotification, error) {
	row := types.StoredNotification{
		Title:     title,
		Body:      body,
		Timestamp: timestamp,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO notification_history (title, body, "timestamp")
		 VALUES ($1, $2, $3) RETURNING id`,
		title, body, timestamp,
	).Scan(&row.ID)
	if err != nil {
		return types.StoredNotification{}, types.NewAppError(types.ErrCodeInternalDB, "failed to append notification history", err)
	}
	return row, nil
}

// List returns all history rows newest-first. The timestamp column is
// ISO 8601 text, so lexicographic descending order is chronological
// descending order; ID breaks ties for rows sharing a trigger time.
func (r *HistoryRepo) List(ctx context.Context) ([]types.StoredNotification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, body, "timestamp" FROM notification_history
		 ORDER BY "timestamp" DESC, id DESC`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query notification history", err)
	}
	defer rows.Close()

	var results []types.StoredNotification
	for rows.Next() {
		var n types.StoredNotification
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Timestamp); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification history row", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notification history rows", err)
	}
	return results, nil
}

// Clear deletes every history row and returns how many were removed.
func (r *HistoryRepo) Clear(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notification_history`)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to clear notification history", err)
	}
	return tag.RowsAffected(), nil
}

// ListBefore returns rows whose trigger time is strictly before the cutoff,
// oldest-first, for archival. The cutoff must be ISO 8601 text in the same
// form Append writes.
func (r *HistoryRepo) ListBefore(ctx context.Context, cutoff string) ([]types.StoredNotification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, body, "timestamp" FROM notification_history
		 WHERE "timestamp" < $1 ORDER BY "timestamp" ASC, id ASC`,
		cutoff)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query aged notification history", err)
	}
	defer rows.Close()

	var results []types.StoredNotification
	for rows.Next() {
		var n types.StoredNotification
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Timestamp); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification history row", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notification history rows", err)
	}
	return results, nil
}

// DeleteBefore removes rows whose trigger time is strictly before the cutoff
// and returns how many were removed. Callers archive via ListBefore first.
func (r *HistoryRepo) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notification_history WHERE "timestamp" < $1`, cutoff)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete aged notification history", err)
	}
	return tag.RowsAffected(), nil
}
