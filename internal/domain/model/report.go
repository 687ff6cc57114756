package model

import "time"

// SyncState is the terminal state of one repository's sync cycle.
type SyncState string

const (
	StateSucceeded SyncState = "succeeded"
	StateFailed    SyncState = "failed"
	StateCanceled  SyncState = "canceled"
)

// KindCounts tallies merge activity for one record kind.
type KindCounts struct {
	Inserted int
	Updated  int
}

// Count records one merged row: an update when the row already existed,
// an insert otherwise.
func (c *KindCounts) Count(existed bool) {
	if existed {
		c.Updated++
	} else {
		c.Inserted++
	}
}

// MergeCounts tallies merge activity for one repository cycle, per kind.
type MergeCounts struct {
	Repositories   KindCounts
	Users          KindCounts
	PullRequests   KindCounts
	IssueComments  KindCounts
	ReviewComments KindCounts
}

// Inserted returns the total rows inserted across all kinds.
func (m MergeCounts) Inserted() int {
	return m.Repositories.Inserted + m.Users.Inserted + m.PullRequests.Inserted +
		m.IssueComments.Inserted + m.ReviewComments.Inserted
}

// Updated returns the total rows updated across all kinds.
func (m MergeCounts) Updated() int {
	return m.Repositories.Updated + m.Users.Updated + m.PullRequests.Updated +
		m.IssueComments.Updated + m.ReviewComments.Updated
}

// RepoReport is the outcome of one repository's sync cycle.
type RepoReport struct {
	RepoFullName string
	State        SyncState
	Stage        string // fetch, merge, or watermark; empty on success.
	Counts       MergeCounts
	Err          error
}

// RunReport summarizes a whole synchronization run. Partial success (some
// repositories failed) is a normal outcome, not a run failure.
type RunReport struct {
	Started  time.Time
	Duration time.Duration
	Repos    []RepoReport
}

// Succeeded returns the number of repositories that reached StateSucceeded.
func (r RunReport) Succeeded() int {
	n := 0
	for _, rr := range r.Repos {
		if rr.State == StateSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the number of repositories that did not succeed.
func (r RunReport) Failed() int {
	return len(r.Repos) - r.Succeeded()
}
