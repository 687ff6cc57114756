package model

import "time"

// RecordKind identifies one of the synced record families. Watermarks are
// tracked per repository and per kind.
type RecordKind string

const (
	KindPullRequests   RecordKind = "pull_requests"
	KindIssueComments  RecordKind = "issue_comments"
	KindReviewComments RecordKind = "review_comments"
)

// Kinds lists every record kind in merge order.
var Kinds = []RecordKind{KindPullRequests, KindIssueComments, KindReviewComments}

// Watermark records the timestamp up to which a repository's data of one
// kind has been durably incorporated. It is written only after the merge
// transaction for the cycle has committed, and never moves backward.
type Watermark struct {
	RepositoryID  int64
	Kind          RecordKind
	LastTimestamp time.Time
	LastSyncedAt  time.Time
}
