package model

import "time"

// Batch is one repository cycle's worth of fetched, validated records,
// ready for a single-transaction merge. CycleStart is the wall-clock time
// the fetch began; it becomes the watermark candidate after the merge
// commits, so records updated during the fetch window are re-fetched on the
// next cycle rather than missed.
type Batch struct {
	Repository     Repository
	PullRequests   []PullRequest
	IssueComments  []IssueComment
	ReviewComments []ReviewComment
	CycleStart     time.Time
}
