package model

import "time"

// ReviewComment represents an inline code comment on a pull request diff,
// keyed by its remote ID. The diff context fields are nullable because
// GitHub omits them for comments on outdated diffs.
type ReviewComment struct {
	ID               int64
	PullRequestID    int64
	Author           string
	Body             string
	APIURL           string
	HTMLURL          string
	DiffHunk         string
	Path             string
	Position         *int
	OriginalPosition *int
	CommitID         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FetchedAt        time.Time

	// AuthorUser is populated during fetch and denormalized into the users
	// table on merge.
	AuthorUser User
}
