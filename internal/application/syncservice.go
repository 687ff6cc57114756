package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// repoLocks serializes sync cycles per repository. The lock is keyed by the
// repository's full name so no two cycles for the same repository can run
// concurrently and race their watermark advances.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *repoLocks) forRepo(fullName string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := l.locks[fullName]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[fullName] = lock
	}
	return lock
}

// SyncService orchestrates one synchronization run across the configured
// repositories. Each repository is one cycle: fetch, merge in a single
// transaction, then advance the watermarks. Failures are isolated per
// repository; only credential rejection aborts the run.
type SyncService struct {
	fetcher    *Fetcher
	store      driven.MergeStore
	watermarks driven.WatermarkStore
	workers    int
	locks      repoLocks
}

// NewSyncService creates a SyncService. workers bounds repository-level
// parallelism; values below 2 select sequential processing. Parallel
// workers remain safe because all API calls share one rate-limit gate.
func NewSyncService(fetcher *Fetcher, store driven.MergeStore, watermarks driven.WatermarkStore, workers int) *SyncService {
	if workers < 1 {
		workers = 1
	}
	return &SyncService{
		fetcher:    fetcher,
		store:      store,
		watermarks: watermarks,
		workers:    workers,
	}
}

// Run synchronizes every configured repository and reports per-repository
// outcomes. Partial success is a normal result: the report says which
// repositories failed and why, and already-committed repositories are
// never rolled back.
func (s *SyncService) Run(ctx context.Context, repos []string) *model.RunReport {
	started := time.Now()
	report := &model.RunReport{Started: started}

	if s.workers <= 1 {
		report.Repos = s.runSequential(ctx, repos)
	} else {
		report.Repos = s.runParallel(ctx, repos)
	}

	report.Duration = time.Since(started)
	s.logSummary(report)
	return report
}

func (s *SyncService) runSequential(ctx context.Context, repos []string) []model.RepoReport {
	results := make([]model.RepoReport, 0, len(repos))

	for i, repo := range repos {
		rr := s.syncRepo(ctx, repo)
		results = append(results, rr)

		if errors.Is(rr.Err, driven.ErrAuthentication) {
			slog.Error("credential rejected, aborting run", "repo", repo)
			results = append(results, canceledReports(repos[i+1:], rr.Err)...)
			break
		}
	}

	return results
}

func (s *SyncService) runParallel(ctx context.Context, repos []string) []model.RepoReport {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]model.RepoReport, len(repos))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.syncRepo(ctx, repos[i])
				if errors.Is(results[i].Err, driven.ErrAuthentication) {
					slog.Error("credential rejected, aborting run", "repo", repos[i])
					cancel()
				}
			}
		}()
	}

dispatch:
	for i := range repos {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		if results[i].RepoFullName == "" {
			results[i] = model.RepoReport{
				RepoFullName: repos[i],
				State:        model.StateCanceled,
				Err:          ctx.Err(),
			}
		}
	}

	return results
}

// syncRepo drives one repository through the cycle state machine:
// fetch, merge, watermark advance, succeeded. Any step's unrecoverable
// error ends the cycle with the prior state untouched.
func (s *SyncService) syncRepo(ctx context.Context, repoFullName string) model.RepoReport {
	lock := s.locks.forRepo(repoFullName)
	lock.Lock()
	defer lock.Unlock()

	rr := model.RepoReport{RepoFullName: repoFullName}

	batch, err := s.fetcher.FetchRepo(ctx, repoFullName)
	if err != nil {
		return s.fail(rr, "fetch", err)
	}

	counts, err := s.store.Merge(ctx, *batch)
	if err != nil {
		return s.fail(rr, "merge", err)
	}
	rr.Counts = counts

	// The merge transaction has committed; only now may the watermarks
	// move. A regression attempt is a logic error worth logging, never a
	// reason to fail an otherwise-complete cycle.
	for _, kind := range model.Kinds {
		err := s.watermarks.Advance(ctx, batch.Repository.ID, kind, batch.CycleStart)
		if errors.Is(err, driven.ErrWatermarkRegression) {
			slog.Warn("watermark regression rejected",
				"repo", repoFullName, "kind", string(kind), "error", err)
			continue
		}
		if err != nil {
			return s.fail(rr, "watermark", err)
		}
	}

	rr.State = model.StateSucceeded
	slog.Info("repository synced",
		"repo", repoFullName,
		"inserted", counts.Inserted(),
		"updated", counts.Updated(),
	)
	return rr
}

func (s *SyncService) fail(rr model.RepoReport, stage string, err error) model.RepoReport {
	rr.Stage = stage
	rr.Err = fmt.Errorf("%s: %w", stage, err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		rr.State = model.StateCanceled
	} else {
		rr.State = model.StateFailed
	}

	slog.Error("repository sync failed",
		"repo", rr.RepoFullName,
		"stage", stage,
		"state", string(rr.State),
		"error", err,
	)
	return rr
}

func canceledReports(repos []string, cause error) []model.RepoReport {
	out := make([]model.RepoReport, 0, len(repos))
	for _, repo := range repos {
		out = append(out, model.RepoReport{
			RepoFullName: repo,
			State:        model.StateCanceled,
			Err:          cause,
		})
	}
	return out
}

func (s *SyncService) logSummary(report *model.RunReport) {
	for _, rr := range report.Repos {
		if rr.State == model.StateSucceeded {
			slog.Info("run result",
				"repo", rr.RepoFullName,
				"state", string(rr.State),
				"pull_requests", rr.Counts.PullRequests.Inserted+rr.Counts.PullRequests.Updated,
				"issue_comments", rr.Counts.IssueComments.Inserted+rr.Counts.IssueComments.Updated,
				"review_comments", rr.Counts.ReviewComments.Inserted+rr.Counts.ReviewComments.Updated,
			)
			continue
		}
		slog.Error("run result",
			"repo", rr.RepoFullName,
			"state", string(rr.State),
			"stage", rr.Stage,
			"error", rr.Err,
		)
	}

	slog.Info("run complete",
		"repos", len(report.Repos),
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Duration.Round(time.Millisecond),
	)
}
