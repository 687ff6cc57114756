package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
)

// ActivityStore defines the read-side port over the persisted tables. It is
// the only surface exposed to downstream analysis and UI layers; nothing
// here touches the sync engine's internals.
type ActivityStore interface {
	GetRepositoryByFullName(ctx context.Context, owner, name string) (*model.Repository, error)
	ListPullRequests(ctx context.Context, repositoryID int64) ([]model.PullRequest, error)
	// ListPullRequestsUpdatedBetween returns pull requests with
	// from <= updated_at < to, ordered by updated_at ascending.
	ListPullRequestsUpdatedBetween(ctx context.Context, repositoryID int64, from, to time.Time) ([]model.PullRequest, error)
	ListIssueComments(ctx context.Context, pullRequestID int64) ([]model.IssueComment, error)
	ListReviewComments(ctx context.Context, pullRequestID int64) ([]model.ReviewComment, error)
}
