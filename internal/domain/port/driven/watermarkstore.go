package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
)

// WatermarkStore defines the driven port for per-repository, per-kind sync
// watermarks. Advance must only be called after the corresponding merge
// transaction has committed; it is monotonic and returns
// ErrWatermarkRegression (leaving the stored value intact) when asked to
// move backward.
type WatermarkStore interface {
	// Get returns the stored watermark; ok is false when none exists yet.
	Get(ctx context.Context, repositoryID int64, kind model.RecordKind) (ts time.Time, ok bool, err error)
	Advance(ctx context.Context, repositoryID int64, kind model.RecordKind, ts time.Time) error
}
