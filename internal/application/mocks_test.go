package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// --- Mock implementations ---

type fetchCall struct {
	Repo   string
	Number int
	Since  time.Time
}

type mockGitHubClient struct {
	mu sync.Mutex

	repositories map[string]model.Repository
	pullRequests map[string][]model.PullRequest

	repoErr  map[string]error
	prErr    map[string]error
	issueErr error

	issueComments  map[int][]model.IssueComment
	reviewComments map[int][]model.ReviewComment

	prCalls     []fetchCall
	issueCalls  []fetchCall
	reviewCalls []fetchCall
}

func newMockGitHubClient() *mockGitHubClient {
	return &mockGitHubClient{
		repositories:   map[string]model.Repository{},
		pullRequests:   map[string][]model.PullRequest{},
		repoErr:        map[string]error{},
		prErr:          map[string]error{},
		issueComments:  map[int][]model.IssueComment{},
		reviewComments: map[int][]model.ReviewComment{},
	}
}

func (m *mockGitHubClient) addRepo(fullName string, id int64) {
	owner, name, _ := splitFullName(fullName)
	m.repositories[fullName] = model.Repository{
		ID:        id,
		Owner:     owner,
		Name:      name,
		URL:       "https://github.com/" + fullName,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		OwnerUser: model.User{Login: owner, ID: id},
	}
}

func splitFullName(fullName string) (string, string, bool) {
	for i := range fullName {
		if fullName[i] == '/' {
			return fullName[:i], fullName[i+1:], true
		}
	}
	return fullName, "", false
}

func (m *mockGitHubClient) FetchRepository(_ context.Context, repoFullName string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repoErr[repoFullName]; err != nil {
		return nil, err
	}
	repo, ok := m.repositories[repoFullName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", driven.ErrRepoNotFound, repoFullName)
	}
	return &repo, nil
}

func (m *mockGitHubClient) FetchPullRequests(ctx context.Context, repoFullName string, since time.Time) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.prCalls = append(m.prCalls, fetchCall{Repo: repoFullName, Since: since})
	if err := m.prErr[repoFullName]; err != nil {
		return nil, err
	}

	var out []model.PullRequest
	for _, pr := range m.pullRequests[repoFullName] {
		if since.IsZero() || !pr.UpdatedAt.Before(since) {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mockGitHubClient) FetchIssueComments(_ context.Context, repoFullName string, prNumber int, since time.Time) ([]model.IssueComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.issueCalls = append(m.issueCalls, fetchCall{Repo: repoFullName, Number: prNumber, Since: since})
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	return m.issueComments[prNumber], nil
}

func (m *mockGitHubClient) FetchReviewComments(_ context.Context, repoFullName string, prNumber int, since time.Time) ([]model.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reviewCalls = append(m.reviewCalls, fetchCall{Repo: repoFullName, Number: prNumber, Since: since})
	return m.reviewComments[prNumber], nil
}

type watermarkKey struct {
	RepositoryID int64
	Kind         model.RecordKind
}

type mockWatermarkStore struct {
	mu         sync.Mutex
	stored     map[watermarkKey]time.Time
	getErr     error
	advanceErr error
}

func newMockWatermarkStore() *mockWatermarkStore {
	return &mockWatermarkStore{stored: map[watermarkKey]time.Time{}}
}

func (m *mockWatermarkStore) Get(_ context.Context, repositoryID int64, kind model.RecordKind) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return time.Time{}, false, m.getErr
	}
	ts, ok := m.stored[watermarkKey{repositoryID, kind}]
	return ts, ok, nil
}

func (m *mockWatermarkStore) Advance(_ context.Context, repositoryID int64, kind model.RecordKind, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.advanceErr != nil {
		return m.advanceErr
	}
	key := watermarkKey{repositoryID, kind}
	if prev, ok := m.stored[key]; ok && ts.Before(prev) {
		return fmt.Errorf("advance to %s: %w", ts, driven.ErrWatermarkRegression)
	}
	m.stored[key] = ts
	return nil
}

type mockMergeStore struct {
	mu       sync.Mutex
	batches  []model.Batch
	mergeErr map[string]error
}

func newMockMergeStore() *mockMergeStore {
	return &mockMergeStore{mergeErr: map[string]error{}}
}

func (m *mockMergeStore) Merge(_ context.Context, batch model.Batch) (model.MergeCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mergeErr[batch.Repository.FullName()]; err != nil {
		return model.MergeCounts{}, err
	}

	m.batches = append(m.batches, batch)

	var counts model.MergeCounts
	counts.Repositories.Inserted = 1
	counts.PullRequests.Inserted = len(batch.PullRequests)
	counts.IssueComments.Inserted = len(batch.IssueComments)
	counts.ReviewComments.Inserted = len(batch.ReviewComments)
	return counts, nil
}

func (m *mockMergeStore) mergedRepos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b.Repository.FullName())
	}
	return out
}
