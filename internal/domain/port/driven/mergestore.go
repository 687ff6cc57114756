package driven

import (
	"context"

	"github.com/ericfisherdev/prsync/internal/domain/model"
)

// MergeStore defines the driven port for idempotent persistence of one
// repository cycle. Merge applies every record in the batch inside a single
// transaction, keyed by remote identifiers: existing rows are overwritten,
// missing rows inserted. Applying the same batch twice yields the same rows.
// On any error the transaction is rolled back in full.
type MergeStore interface {
	Merge(ctx context.Context, batch model.Batch) (model.MergeCounts, error)
}
