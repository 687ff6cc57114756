package model

import "time"

// IssueComment represents a PR-level discussion comment (from the GitHub
// Issues API, not the review comments API), keyed by its remote ID.
type IssueComment struct {
	ID            int64
	PullRequestID int64
	Author        string
	Body          string
	APIURL        string
	HTMLURL       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FetchedAt     time.Time

	// AuthorUser is populated during fetch and denormalized into the users
	// table on merge.
	AuthorUser User
}
