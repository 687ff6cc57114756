package github

import (
	"fmt"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// Mapping functions convert go-github payload types to validated domain
// records. They are pure: no side effects, and a missing or malformed
// required field yields an ErrValidation naming the field rather than a
// partially filled record.

func mapRepository(r *gh.Repository) (model.Repository, error) {
	if r.GetID() == 0 {
		return model.Repository{}, fmt.Errorf("%w: repository missing id", driven.ErrValidation)
	}
	if r.GetOwner().GetLogin() == "" {
		return model.Repository{}, fmt.Errorf("%w: repository %d missing owner login", driven.ErrValidation, r.GetID())
	}
	if r.GetName() == "" {
		return model.Repository{}, fmt.Errorf("%w: repository %d missing name", driven.ErrValidation, r.GetID())
	}
	if r.GetCreatedAt().IsZero() || r.GetUpdatedAt().IsZero() {
		return model.Repository{}, fmt.Errorf("%w: repository %d missing timestamps", driven.ErrValidation, r.GetID())
	}

	return model.Repository{
		ID:        r.GetID(),
		Owner:     r.GetOwner().GetLogin(),
		Name:      r.GetName(),
		URL:       r.GetHTMLURL(),
		CreatedAt: r.GetCreatedAt().Time.UTC(),
		UpdatedAt: r.GetUpdatedAt().Time.UTC(),
		OwnerUser: mapUser(r.GetOwner()),
	}, nil
}

func mapPullRequest(pr *gh.PullRequest, repositoryID int64) (model.PullRequest, error) {
	if pr.GetID() == 0 {
		return model.PullRequest{}, fmt.Errorf("%w: pull request missing id", driven.ErrValidation)
	}
	// A payload without its sequence number cannot be addressed for comment
	// fetches; reject it so the caller skips the record.
	if pr.GetNumber() == 0 {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d missing number", driven.ErrValidation, pr.GetID())
	}
	if pr.GetUser().GetLogin() == "" {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d missing author login", driven.ErrValidation, pr.GetID())
	}
	if pr.GetCreatedAt().IsZero() || pr.GetUpdatedAt().IsZero() {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d missing timestamps", driven.ErrValidation, pr.GetID())
	}

	created := pr.GetCreatedAt().Time.UTC()
	closed := timestampPtr(pr.ClosedAt)
	merged := timestampPtr(pr.MergedAt)
	if closed != nil && closed.Before(created) {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d closed_at precedes created_at", driven.ErrValidation, pr.GetID())
	}
	if merged != nil && merged.Before(created) {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d merged_at precedes created_at", driven.ErrValidation, pr.GetID())
	}

	state := model.PRState(pr.GetState())
	if state != model.PRStateOpen && state != model.PRStateClosed {
		return model.PullRequest{}, fmt.Errorf("%w: pull request %d has unknown state %q", driven.ErrValidation, pr.GetID(), pr.GetState())
	}

	return model.PullRequest{
		ID:           pr.GetID(),
		RepositoryID: repositoryID,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		State:        state,
		CreatedAt:    created,
		UpdatedAt:    pr.GetUpdatedAt().Time.UTC(),
		ClosedAt:     closed,
		MergedAt:     merged,
		Body:         pr.GetBody(),
		URL:          pr.GetHTMLURL(),
		APIURL:       pr.GetURL(),
		AuthorUser:   mapUser(pr.GetUser()),
	}, nil
}

func mapIssueComment(c *gh.IssueComment, pullRequestID int64) (model.IssueComment, error) {
	if c.GetID() == 0 {
		return model.IssueComment{}, fmt.Errorf("%w: issue comment missing id", driven.ErrValidation)
	}
	if c.GetUser().GetLogin() == "" {
		return model.IssueComment{}, fmt.Errorf("%w: issue comment %d missing author login", driven.ErrValidation, c.GetID())
	}
	if c.GetCreatedAt().IsZero() || c.GetUpdatedAt().IsZero() {
		return model.IssueComment{}, fmt.Errorf("%w: issue comment %d missing timestamps", driven.ErrValidation, c.GetID())
	}

	return model.IssueComment{
		ID:            c.GetID(),
		PullRequestID: pullRequestID,
		Author:        c.GetUser().GetLogin(),
		Body:          c.GetBody(),
		APIURL:        c.GetURL(),
		HTMLURL:       c.GetHTMLURL(),
		CreatedAt:     c.GetCreatedAt().Time.UTC(),
		UpdatedAt:     c.GetUpdatedAt().Time.UTC(),
		AuthorUser:    mapUser(c.GetUser()),
	}, nil
}

func mapReviewComment(c *gh.PullRequestComment, pullRequestID int64) (model.ReviewComment, error) {
	if c.GetID() == 0 {
		return model.ReviewComment{}, fmt.Errorf("%w: review comment missing id", driven.ErrValidation)
	}
	if c.GetUser().GetLogin() == "" {
		return model.ReviewComment{}, fmt.Errorf("%w: review comment %d missing author login", driven.ErrValidation, c.GetID())
	}
	if c.GetCreatedAt().IsZero() || c.GetUpdatedAt().IsZero() {
		return model.ReviewComment{}, fmt.Errorf("%w: review comment %d missing timestamps", driven.ErrValidation, c.GetID())
	}

	var position, originalPosition *int
	if c.Position != nil {
		v := c.GetPosition()
		position = &v
	}
	if c.OriginalPosition != nil {
		v := c.GetOriginalPosition()
		originalPosition = &v
	}

	return model.ReviewComment{
		ID:               c.GetID(),
		PullRequestID:    pullRequestID,
		Author:           c.GetUser().GetLogin(),
		Body:             c.GetBody(),
		APIURL:           c.GetURL(),
		HTMLURL:          c.GetHTMLURL(),
		DiffHunk:         c.GetDiffHunk(),
		Path:             c.GetPath(),
		Position:         position,
		OriginalPosition: originalPosition,
		CommitID:         c.GetCommitID(),
		CreatedAt:        c.GetCreatedAt().Time.UTC(),
		UpdatedAt:        c.GetUpdatedAt().Time.UTC(),
		AuthorUser:       mapUser(c.GetUser()),
	}, nil
}

func mapUser(u *gh.User) model.User {
	return model.User{
		Login: u.GetLogin(),
		ID:    u.GetID(),
		Type:  u.GetType(),
		Name:  u.GetName(),
		Email: u.GetEmail(),
	}
}

func timestampPtr(ts *gh.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
