package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prsync/internal/application"
	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

func newSyncService(gh *mockGitHubClient, store *mockMergeStore, watermarks *mockWatermarkStore, workers int) *application.SyncService {
	fetcher := application.NewFetcher(gh, watermarks, 0)
	return application.NewSyncService(fetcher, store, watermarks, workers)
}

func TestRun_SingleRepoSucceeds(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/repo", 555)
	gh.pullRequests["owner/repo"] = []model.PullRequest{
		testPR(101, 1, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)),
	}

	store := newMockMergeStore()
	watermarks := newMockWatermarkStore()
	svc := newSyncService(gh, store, watermarks, 1)

	report := svc.Run(context.Background(), []string{"owner/repo"})

	require.Len(t, report.Repos, 1)
	rr := report.Repos[0]
	assert.Equal(t, model.StateSucceeded, rr.State)
	assert.NoError(t, rr.Err)
	assert.Equal(t, 1, rr.Counts.PullRequests.Inserted)
	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, 0, report.Failed())

	// Watermarks advanced to the cycle start for every kind, only after the
	// merge was recorded.
	require.Len(t, store.batches, 1)
	cycleStart := store.batches[0].CycleStart
	for _, kind := range model.Kinds {
		ts, ok, err := watermarks.Get(context.Background(), 555, kind)
		require.NoError(t, err)
		assert.True(t, ok, string(kind))
		assert.Equal(t, cycleStart, ts, string(kind))
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/alpha", 1)
	gh.addRepo("owner/gamma", 3)
	// owner/beta is unknown: fetch fails with repo-not-found.

	store := newMockMergeStore()
	watermarks := newMockWatermarkStore()
	svc := newSyncService(gh, store, watermarks, 1)

	repos := []string{"owner/alpha", "owner/beta", "owner/gamma"}
	report := svc.Run(context.Background(), repos)

	require.Len(t, report.Repos, 3)
	assert.Equal(t, model.StateSucceeded, report.Repos[0].State)
	assert.Equal(t, model.StateFailed, report.Repos[1].State)
	assert.Equal(t, "fetch", report.Repos[1].Stage)
	assert.ErrorIs(t, report.Repos[1].Err, driven.ErrRepoNotFound)
	assert.Equal(t, model.StateSucceeded, report.Repos[2].State)

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, []string{"owner/alpha", "owner/gamma"}, store.mergedRepos())

	// The failed repository's watermarks stay untouched.
	_, ok, err := watermarks.Get(context.Background(), 2, model.KindPullRequests)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_AuthenticationAbortsRun(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/alpha", 1)
	gh.addRepo("owner/beta", 2)
	gh.addRepo("owner/gamma", 3)
	gh.prErr["owner/alpha"] = fmt.Errorf("%w: bad credentials", driven.ErrAuthentication)

	store := newMockMergeStore()
	svc := newSyncService(gh, store, newMockWatermarkStore(), 1)

	report := svc.Run(context.Background(), []string{"owner/alpha", "owner/beta", "owner/gamma"})

	require.Len(t, report.Repos, 3)
	assert.Equal(t, model.StateFailed, report.Repos[0].State)
	assert.ErrorIs(t, report.Repos[0].Err, driven.ErrAuthentication)
	assert.Equal(t, model.StateCanceled, report.Repos[1].State)
	assert.Equal(t, model.StateCanceled, report.Repos[2].State)

	// The credential is rejected for every repository; nothing else was tried.
	assert.Empty(t, store.batches)
	require.Len(t, gh.prCalls, 1)
}

func TestRun_MergeFailureSkipsWatermarks(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/repo", 555)

	store := newMockMergeStore()
	store.mergeErr["owner/repo"] = errors.New("disk full")
	watermarks := newMockWatermarkStore()
	svc := newSyncService(gh, store, watermarks, 1)

	report := svc.Run(context.Background(), []string{"owner/repo"})

	require.Len(t, report.Repos, 1)
	assert.Equal(t, model.StateFailed, report.Repos[0].State)
	assert.Equal(t, "merge", report.Repos[0].Stage)

	_, ok, err := watermarks.Get(context.Background(), 555, model.KindPullRequests)
	require.NoError(t, err)
	assert.False(t, ok, "watermark must not move when the merge failed")
}

// A rejected watermark advance is a warning, not a cycle failure: the data
// is committed and a stale watermark only means some records are re-fetched.
func TestRun_WatermarkRegressionIsNotFatal(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/repo", 555)

	watermarks := newMockWatermarkStore()
	future := time.Now().Add(48 * time.Hour)
	for _, kind := range model.Kinds {
		require.NoError(t, watermarks.Advance(context.Background(), 555, kind, future))
	}

	svc := newSyncService(gh, newMockMergeStore(), watermarks, 1)
	report := svc.Run(context.Background(), []string{"owner/repo"})

	require.Len(t, report.Repos, 1)
	assert.Equal(t, model.StateSucceeded, report.Repos[0].State)

	// The stored watermark keeps its (later) value.
	ts, _, err := watermarks.Get(context.Background(), 555, model.KindPullRequests)
	require.NoError(t, err)
	assert.Equal(t, future, ts)
}

func TestRun_WatermarkStoreFailure(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/repo", 555)

	watermarks := newMockWatermarkStore()
	svc := newSyncService(gh, newMockMergeStore(), watermarks, 1)

	watermarks.mu.Lock()
	watermarks.advanceErr = errors.New("disk gone")
	watermarks.mu.Unlock()

	report := svc.Run(context.Background(), []string{"owner/repo"})

	require.Len(t, report.Repos, 1)
	assert.Equal(t, model.StateFailed, report.Repos[0].State)
	assert.Equal(t, "watermark", report.Repos[0].Stage)
}

func TestRun_CanceledContext(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/repo", 555)

	svc := newSyncService(gh, newMockMergeStore(), newMockWatermarkStore(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := svc.Run(ctx, []string{"owner/repo"})

	require.Len(t, report.Repos, 1)
	assert.Equal(t, model.StateCanceled, report.Repos[0].State)
}

func TestRun_Parallel(t *testing.T) {
	gh := newMockGitHubClient()
	repos := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		name := fmt.Sprintf("owner/repo-%d", i)
		gh.addRepo(name, int64(i))
		repos = append(repos, name)
	}

	store := newMockMergeStore()
	svc := newSyncService(gh, store, newMockWatermarkStore(), 3)

	report := svc.Run(context.Background(), repos)

	require.Len(t, report.Repos, 6)
	assert.Equal(t, 6, report.Succeeded())
	// Results keep the configured order regardless of worker scheduling.
	for i, rr := range report.Repos {
		assert.Equal(t, repos[i], rr.RepoFullName)
		assert.Equal(t, model.StateSucceeded, rr.State)
	}
	assert.Len(t, store.batches, 6)
}

func TestRun_ParallelFailureIsolation(t *testing.T) {
	gh := newMockGitHubClient()
	gh.addRepo("owner/alpha", 1)
	gh.addRepo("owner/gamma", 3)

	store := newMockMergeStore()
	svc := newSyncService(gh, store, newMockWatermarkStore(), 2)

	report := svc.Run(context.Background(), []string{"owner/alpha", "owner/beta", "owner/gamma"})

	require.Len(t, report.Repos, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, model.StateFailed, report.Repos[1].State)
	assert.ErrorIs(t, report.Repos[1].Err, driven.ErrRepoNotFound)
}
