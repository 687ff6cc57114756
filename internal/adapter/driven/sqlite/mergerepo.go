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
var _ driven.MergeStore = (*MergeRepo)(nil)

// MergeRepo is the SQLite implementation of the MergeStore port. One call
// to Merge is one transaction: repository first, then users, pull requests,
// and comments, honoring foreign-key order. Every row is keyed by its
// remote identifier, so re-merging an identical batch changes nothing but
// fetched_at.
type MergeRepo struct {
	db  *DB
	now func() time.Time
}

// NewMergeRepo creates a MergeRepo backed by the given DB.
func NewMergeRepo(db *DB) *MergeRepo {
	return &MergeRepo{db: db, now: time.Now}
}

// Merge applies one repository cycle's records inside a single writer
// transaction and reports inserted/updated rows per kind. On any error the
// transaction is rolled back in full and the zero counts are returned.
func (r *MergeRepo) Merge(ctx context.Context, batch model.Batch) (model.MergeCounts, error) {
	var counts model.MergeCounts
	fetchedAt := formatTime(r.now())

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.MergeCounts{}, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.mergeRepository(ctx, tx, batch.Repository, fetchedAt, &counts.Repositories); err != nil {
		return model.MergeCounts{}, err
	}

	for _, u := range collectUsers(batch) {
		if err := r.mergeUser(ctx, tx, u, fetchedAt, &counts.Users); err != nil {
			return model.MergeCounts{}, err
		}
	}

	for _, pr := range batch.PullRequests {
		if err := r.mergePullRequest(ctx, tx, pr, fetchedAt, &counts.PullRequests); err != nil {
			return model.MergeCounts{}, err
		}
	}

	for _, c := range batch.IssueComments {
		if err := r.mergeIssueComment(ctx, tx, c, fetchedAt, &counts.IssueComments); err != nil {
			return model.MergeCounts{}, err
		}
	}

	for _, c := range batch.ReviewComments {
		if err := r.mergeReviewComment(ctx, tx, c, fetchedAt, &counts.ReviewComments); err != nil {
			return model.MergeCounts{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.MergeCounts{}, fmt.Errorf("commit merge for %s: %w", batch.Repository.FullName(), err)
	}

	return counts, nil
}

func (r *MergeRepo) mergeRepository(ctx context.Context, tx *sql.Tx, repo model.Repository, fetchedAt string, kc *model.KindCounts) error {
	const query = `
		INSERT INTO repositories (id, owner_login, name, url, created_at, updated_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_login = excluded.owner_login,
			name = excluded.name,
			url = excluded.url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at
	`

	exists, err := rowExists(ctx, tx, `SELECT 1 FROM repositories WHERE id = ?`, repo.ID)
	if err != nil {
		return fmt.Errorf("check repository %d: %w", repo.ID, err)
	}

	_, err = tx.ExecContext(ctx, query,
		repo.ID, repo.Owner, repo.Name, repo.URL,
		formatTime(repo.CreatedAt), formatTime(repo.UpdatedAt), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("merge repository %s: %w", repo.FullName(), err)
	}

	kc.Count(exists)
	return nil
}

func (r *MergeRepo) mergeUser(ctx context.Context, tx *sql.Tx, u model.User, fetchedAt string, kc *model.KindCounts) error {
	const query = `
		INSERT INTO users (login, id, type, name, email, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(login) DO UPDATE SET
			id = excluded.id,
			type = excluded.type,
			name = excluded.name,
			email = excluded.email,
			fetched_at = excluded.fetched_at
	`

	exists, err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE login = ?`, u.Login)
	if err != nil {
		return fmt.Errorf("check user %s: %w", u.Login, err)
	}

	_, err = tx.ExecContext(ctx, query, u.Login, u.ID, u.Type, u.Name, u.Email, fetchedAt)
	if err != nil {
		return fmt.Errorf("merge user %s: %w", u.Login, err)
	}

	kc.Count(exists)
	return nil
}

func (r *MergeRepo) mergePullRequest(ctx context.Context, tx *sql.Tx, pr model.PullRequest, fetchedAt string, kc *model.KindCounts) error {
	const query = `
		INSERT INTO pull_requests (
			id, repository_id, number, title, user_login, state,
			created_at, updated_at, closed_at, merged_at, body, url, api_url, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			repository_id = excluded.repository_id,
			number = excluded.number,
			title = excluded.title,
			user_login = excluded.user_login,
			state = excluded.state,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			closed_at = excluded.closed_at,
			merged_at = excluded.merged_at,
			body = excluded.body,
			url = excluded.url,
			api_url = excluded.api_url,
			fetched_at = excluded.fetched_at
	`

	exists, err := rowExists(ctx, tx, `SELECT 1 FROM pull_requests WHERE id = ?`, pr.ID)
	if err != nil {
		return fmt.Errorf("check pull request %d: %w", pr.ID, err)
	}

	_, err = tx.ExecContext(ctx, query,
		pr.ID, pr.RepositoryID, pr.Number, pr.Title, pr.Author, string(pr.State),
		formatTime(pr.CreatedAt), formatTime(pr.UpdatedAt),
		formatTimePtr(pr.ClosedAt), formatTimePtr(pr.MergedAt),
		pr.Body, pr.URL, pr.APIURL, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("merge pull request #%d (id %d): %w", pr.Number, pr.ID, err)
	}

	kc.Count(exists)
	return nil
}

func (r *MergeRepo) mergeIssueComment(ctx context.Context, tx *sql.Tx, c model.IssueComment, fetchedAt string, kc *model.KindCounts) error {
	const query = `
		INSERT INTO issue_comments (
			id, pull_request_id, user_login, body, api_url, html_url,
			created_at, updated_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pull_request_id = excluded.pull_request_id,
			user_login = excluded.user_login,
			body = excluded.body,
			api_url = excluded.api_url,
			html_url = excluded.html_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at
	`

	exists, err := rowExists(ctx, tx, `SELECT 1 FROM issue_comments WHERE id = ?`, c.ID)
	if err != nil {
		return fmt.Errorf("check issue comment %d: %w", c.ID, err)
	}

	_, err = tx.ExecContext(ctx, query,
		c.ID, c.PullRequestID, c.Author, c.Body, c.APIURL, c.HTMLURL,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("merge issue comment %d: %w", c.ID, err)
	}

	kc.Count(exists)
	return nil
}

func (r *MergeRepo) mergeReviewComment(ctx context.Context, tx *sql.Tx, c model.ReviewComment, fetchedAt string, kc *model.KindCounts) error {
	const query = `
		INSERT INTO review_comments (
			id, pull_request_id, user_login, body, api_url, html_url,
			diff_hunk, path, position, original_position, commit_id,
			created_at, updated_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pull_request_id = excluded.pull_request_id,
			user_login = excluded.user_login,
			body = excluded.body,
			api_url = excluded.api_url,
			html_url = excluded.html_url,
			diff_hunk = excluded.diff_hunk,
			path = excluded.path,
			position = excluded.position,
			original_position = excluded.original_position,
			commit_id = excluded.commit_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at
	`

	exists, err := rowExists(ctx, tx, `SELECT 1 FROM review_comments WHERE id = ?`, c.ID)
	if err != nil {
		return fmt.Errorf("check review comment %d: %w", c.ID, err)
	}

	_, err = tx.ExecContext(ctx, query,
		c.ID, c.PullRequestID, c.Author, c.Body, c.APIURL, c.HTMLURL,
		c.DiffHunk, c.Path, c.Position, c.OriginalPosition, c.CommitID,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("merge review comment %d: %w", c.ID, err)
	}

	kc.Count(exists)
	return nil
}

// collectUsers dedupes the accounts encountered across the batch by login.
// Records carrying no author account (login empty) contribute nothing.
func collectUsers(batch model.Batch) []model.User {
	seen := make(map[string]model.User)

	add := func(u model.User) {
		if u.Login == "" {
			return
		}
		seen[u.Login] = u
	}

	add(batch.Repository.OwnerUser)
	for _, pr := range batch.PullRequests {
		add(pr.AuthorUser)
	}
	for _, c := range batch.IssueComments {
		add(c.AuthorUser)
	}
	for _, c := range batch.ReviewComments {
		add(c.AuthorUser)
	}

	users := make([]model.User, 0, len(seen))
	for _, u := range seen {
		users = append(users, u)
	}
	return users
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
