package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
)

// GitHubClient defines the driven port for reading pull-request activity
// from the GitHub API. Every method follows pagination transparently and
// returns validated domain records; payloads failing validation are skipped
// with a logged warning rather than aborting the batch.
//
// since bounds the fetch to records updated at or after the given instant.
// A zero since means full backfill.
type GitHubClient interface {
	FetchRepository(ctx context.Context, repoFullName string) (*model.Repository, error)
	FetchPullRequests(ctx context.Context, repoFullName string, since time.Time) ([]model.PullRequest, error)
	FetchIssueComments(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.IssueComment, error)
	FetchReviewComments(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.ReviewComment, error)
}
