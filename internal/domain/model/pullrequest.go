package model

import "time"

// PRState represents the lifecycle state of a pull request as reported by
// GitHub. Merged pull requests are closed with a non-nil MergedAt.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// PullRequest represents a GitHub pull request keyed by its remote ID.
// Number is unique only within its repository.
type PullRequest struct {
	ID           int64
	RepositoryID int64
	Number       int
	Title        string
	Author       string
	State        PRState
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
	Body         string
	URL          string
	APIURL       string
	FetchedAt    time.Time

	// AuthorUser is populated during fetch and denormalized into the users
	// table on merge; it is not persisted as a pull_requests column.
	AuthorUser User
}
