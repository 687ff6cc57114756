package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WatermarkStore = (*WatermarkRepo)(nil)

// WatermarkRepo is the SQLite implementation of the WatermarkStore port.
type WatermarkRepo struct {
	db  *DB
	now func() time.Time
}

// NewWatermarkRepo creates a WatermarkRepo backed by the given DB.
func NewWatermarkRepo(db *DB) *WatermarkRepo {
	return &WatermarkRepo{db: db, now: time.Now}
}

// Get returns the stored watermark for a repository/kind pair. ok is false
// when no watermark exists yet (first-ever sync).
func (r *WatermarkRepo) Get(ctx context.Context, repositoryID int64, kind model.RecordKind) (time.Time, bool, error) {
	const query = `SELECT last_timestamp FROM sync_watermarks WHERE repository_id = ? AND kind = ?`

	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query, repositoryID, string(kind)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get watermark for repository %d kind %s: %w", repositoryID, kind, err)
	}

	ts, err := parseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse watermark for repository %d kind %s: %w", repositoryID, kind, err)
	}

	return ts, true, nil
}

// Advance moves the watermark forward to ts and records the sync time.
// The update is guarded in SQL: RFC 3339 UTC strings order chronologically,
// so a conditional upsert rejects any attempt to move backward, returning
// ErrWatermarkRegression and leaving the stored value intact.
func (r *WatermarkRepo) Advance(ctx context.Context, repositoryID int64, kind model.RecordKind, ts time.Time) error {
	const query = `
		INSERT INTO sync_watermarks (repository_id, kind, last_timestamp, last_synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repository_id, kind) DO UPDATE SET
			last_timestamp = excluded.last_timestamp,
			last_synced_at = excluded.last_synced_at
		WHERE excluded.last_timestamp >= sync_watermarks.last_timestamp
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		repositoryID, string(kind), formatTime(ts), formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("advance watermark for repository %d kind %s: %w", repositoryID, kind, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("advance watermark for repository %d kind %s to %s: %w",
			repositoryID, kind, formatTime(ts), driven.ErrWatermarkRegression)
	}

	return nil
}
