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
var _ driven.ActivityStore = (*ActivityRepo)(nil)

// ActivityRepo is the SQLite implementation of the ActivityStore read-side
// port. Everything goes through the reader pool; nothing here writes.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates an ActivityRepo backed by the given DB.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// GetRepositoryByFullName retrieves a repository by owner and name.
// Returns nil, nil if no such repository has been synced.
func (r *ActivityRepo) GetRepositoryByFullName(ctx context.Context, owner, name string) (*model.Repository, error) {
	const query = `
		SELECT id, owner_login, name, url, created_at, updated_at, fetched_at
		FROM repositories
		WHERE owner_login = ? AND name = ?
	`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, owner, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}

	return repo, nil
}

// ListPullRequests returns all pull requests of a repository ordered by number.
func (r *ActivityRepo) ListPullRequests(ctx context.Context, repositoryID int64) ([]model.PullRequest, error) {
	const query = `
		SELECT id, repository_id, number, title, user_login, state,
		       created_at, updated_at, closed_at, merged_at, body, url, api_url, fetched_at
		FROM pull_requests
		WHERE repository_id = ?
		ORDER BY number
	`

	return r.queryPullRequests(ctx, query, repositoryID)
}

// ListPullRequestsUpdatedBetween returns pull requests of a repository with
// from <= updated_at < to, ordered by updated_at ascending.
func (r *ActivityRepo) ListPullRequestsUpdatedBetween(ctx context.Context, repositoryID int64, from, to time.Time) ([]model.PullRequest, error) {
	const query = `
		SELECT id, repository_id, number, title, user_login, state,
		       created_at, updated_at, closed_at, merged_at, body, url, api_url, fetched_at
		FROM pull_requests
		WHERE repository_id = ? AND updated_at >= ? AND updated_at < ?
		ORDER BY updated_at
	`

	return r.queryPullRequests(ctx, query, repositoryID, formatTime(from), formatTime(to))
}

// ListIssueComments returns all issue comments of a pull request ordered by
// creation time.
func (r *ActivityRepo) ListIssueComments(ctx context.Context, pullRequestID int64) ([]model.IssueComment, error) {
	const query = `
		SELECT id, pull_request_id, user_login, body, api_url, html_url,
		       created_at, updated_at, fetched_at
		FROM issue_comments
		WHERE pull_request_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, pullRequestID)
	if err != nil {
		return nil, fmt.Errorf("query issue comments: %w", err)
	}
	defer rows.Close()

	var comments []model.IssueComment
	for rows.Next() {
		var c model.IssueComment
		var createdAt, updatedAt, fetchedAt string

		err := rows.Scan(&c.ID, &c.PullRequestID, &c.Author, &c.Body, &c.APIURL, &c.HTMLURL,
			&createdAt, &updatedAt, &fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan issue comment: %w", err)
		}

		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		if c.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, fmt.Errorf("parse fetched_at: %w", err)
		}

		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue comments: %w", err)
	}

	return comments, nil
}

// ListReviewComments returns all review comments of a pull request ordered
// by creation time.
func (r *ActivityRepo) ListReviewComments(ctx context.Context, pullRequestID int64) ([]model.ReviewComment, error) {
	const query = `
		SELECT id, pull_request_id, user_login, body, api_url, html_url,
		       diff_hunk, path, position, original_position, commit_id,
		       created_at, updated_at, fetched_at
		FROM review_comments
		WHERE pull_request_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, pullRequestID)
	if err != nil {
		return nil, fmt.Errorf("query review comments: %w", err)
	}
	defer rows.Close()

	var comments []model.ReviewComment
	for rows.Next() {
		var c model.ReviewComment
		var diffHunk, path, commitID sql.NullString
		var position, originalPosition sql.NullInt64
		var createdAt, updatedAt, fetchedAt string

		err := rows.Scan(&c.ID, &c.PullRequestID, &c.Author, &c.Body, &c.APIURL, &c.HTMLURL,
			&diffHunk, &path, &position, &originalPosition, &commitID,
			&createdAt, &updatedAt, &fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan review comment: %w", err)
		}

		c.DiffHunk = diffHunk.String
		c.Path = path.String
		c.CommitID = commitID.String
		if position.Valid {
			v := int(position.Int64)
			c.Position = &v
		}
		if originalPosition.Valid {
			v := int(originalPosition.Int64)
			c.OriginalPosition = &v
		}

		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		if c.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, fmt.Errorf("parse fetched_at: %w", err)
		}

		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review comments: %w", err)
	}

	return comments, nil
}

func (r *ActivityRepo) queryPullRequests(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPullRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var createdAt, updatedAt, fetchedAt string

	err := s.Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL, &createdAt, &updatedAt, &fetchedAt)
	if err != nil {
		return nil, err
	}

	if repo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if repo.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if repo.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}

	return &repo, nil
}

func scanPullRequest(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var state string
	var body sql.NullString
	var createdAt, updatedAt, fetchedAt string
	var closedAt, mergedAt *string

	err := s.Scan(&pr.ID, &pr.RepositoryID, &pr.Number, &pr.Title, &pr.Author, &state,
		&createdAt, &updatedAt, &closedAt, &mergedAt, &body, &pr.URL, &pr.APIURL, &fetchedAt)
	if err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)
	pr.Body = body.String

	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if pr.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}
	if pr.ClosedAt, err = parseTimePtr(closedAt); err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}
	if pr.MergedAt, err = parseTimePtr(mergedAt); err != nil {
		return nil, fmt.Errorf("parse merged_at: %w", err)
	}

	return &pr, nil
}
