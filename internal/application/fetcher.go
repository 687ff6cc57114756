// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// Fetcher assembles one repository's incremental fetch: it resolves the
// stored watermarks, pulls everything updated since them through the API
// layer, and packages the validated records into a merge-ready batch.
type Fetcher struct {
	gh         driven.GitHubClient
	watermarks driven.WatermarkStore
	lookback   time.Duration
	now        func() time.Time
}

// NewFetcher creates a Fetcher. lookback bounds the first-ever sync of a
// repository: with no watermark stored, the fetch reaches back lookback
// from the cycle start. A zero lookback means full backfill.
func NewFetcher(gh driven.GitHubClient, watermarks driven.WatermarkStore, lookback time.Duration) *Fetcher {
	return &Fetcher{
		gh:         gh,
		watermarks: watermarks,
		lookback:   lookback,
		now:        time.Now,
	}
}

// FetchRepo fetches one repository's pull requests and their comments,
// bounded per kind by that kind's watermark. The returned batch carries the
// cycle start time as the watermark candidate: advancing to it (rather than
// to any record's own timestamp) guarantees that records updated while the
// fetch was in flight are picked up by the next cycle despite clock skew
// between client and remote.
//
// Any unrecoverable API error aborts the cycle without touching the store
// or the watermarks.
func (f *Fetcher) FetchRepo(ctx context.Context, repoFullName string) (*model.Batch, error) {
	cycleStart := f.now().UTC()

	repo, err := f.gh.FetchRepository(ctx, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", repoFullName, err)
	}

	prSince, err := f.since(ctx, repo.ID, model.KindPullRequests, cycleStart)
	if err != nil {
		return nil, err
	}
	issueSince, err := f.since(ctx, repo.ID, model.KindIssueComments, cycleStart)
	if err != nil {
		return nil, err
	}
	reviewSince, err := f.since(ctx, repo.ID, model.KindReviewComments, cycleStart)
	if err != nil {
		return nil, err
	}

	prs, err := f.gh.FetchPullRequests(ctx, repoFullName, prSince)
	if err != nil {
		return nil, fmt.Errorf("fetching pull requests for %s: %w", repoFullName, err)
	}
	for i := range prs {
		prs[i].RepositoryID = repo.ID
	}

	batch := &model.Batch{
		Repository:   *repo,
		PullRequests: prs,
		CycleStart:   cycleStart,
	}

	for _, pr := range prs {
		issueComments, err := f.gh.FetchIssueComments(ctx, repoFullName, pr.Number, issueSince)
		if err != nil {
			return nil, fmt.Errorf("fetching issue comments for %s#%d: %w", repoFullName, pr.Number, err)
		}
		for i := range issueComments {
			issueComments[i].PullRequestID = pr.ID
		}
		batch.IssueComments = append(batch.IssueComments, issueComments...)

		reviewComments, err := f.gh.FetchReviewComments(ctx, repoFullName, pr.Number, reviewSince)
		if err != nil {
			return nil, fmt.Errorf("fetching review comments for %s#%d: %w", repoFullName, pr.Number, err)
		}
		for i := range reviewComments {
			reviewComments[i].PullRequestID = pr.ID
		}
		batch.ReviewComments = append(batch.ReviewComments, reviewComments...)
	}

	slog.Info("repository fetched",
		"repo", repoFullName,
		"since", prSince,
		"pull_requests", len(batch.PullRequests),
		"issue_comments", len(batch.IssueComments),
		"review_comments", len(batch.ReviewComments),
	)

	return batch, nil
}

// since resolves the fetch lower bound for one record kind. No stored
// watermark means a first-ever sync: back off by the lookback window, or
// fetch everything when no window is configured.
func (f *Fetcher) since(ctx context.Context, repositoryID int64, kind model.RecordKind, cycleStart time.Time) (time.Time, error) {
	ts, ok, err := f.watermarks.Get(ctx, repositoryID, kind)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving watermark for repository %d kind %s: %w", repositoryID, kind, err)
	}
	if ok {
		return ts, nil
	}
	if f.lookback > 0 {
		return cycleStart.Add(-f.lookback), nil
	}
	return time.Time{}, nil
}
