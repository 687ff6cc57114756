package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/ericfisherdev/prsync/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// Fixture builders. Timestamps are fixed so assertions can compare exact
// values after a round trip through the TEXT columns.

var (
	fixtureCreated = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	fixtureUpdated = time.Date(2026, 1, 20, 9, 30, 0, 0, time.UTC)
)

func testRepository() model.Repository {
	return model.Repository{
		ID:        555,
		Owner:     "octocat",
		Name:      "hello-world",
		URL:       "https://github.com/octocat/hello-world",
		CreatedAt: fixtureCreated,
		UpdatedAt: fixtureUpdated,
		OwnerUser: model.User{Login: "octocat", ID: 1, Type: "User"},
	}
}

func testPullRequest(id int64, number int) model.PullRequest {
	return model.PullRequest{
		ID:           id,
		RepositoryID: 555,
		Number:       number,
		Title:        fmt.Sprintf("PR %d", number),
		Author:       "alice",
		State:        model.PRStateOpen,
		CreatedAt:    fixtureCreated,
		UpdatedAt:    fixtureUpdated,
		Body:         "change description",
		URL:          fmt.Sprintf("https://github.com/octocat/hello-world/pull/%d", number),
		APIURL:       fmt.Sprintf("https://api.github.com/repos/octocat/hello-world/pulls/%d", number),
		AuthorUser:   model.User{Login: "alice", ID: 2, Type: "User"},
	}
}

func testIssueComment(id, prID int64) model.IssueComment {
	return model.IssueComment{
		ID:            id,
		PullRequestID: prID,
		Author:        "bob",
		Body:          "looks good",
		APIURL:        fmt.Sprintf("https://api.github.com/repos/octocat/hello-world/issues/comments/%d", id),
		HTMLURL:       fmt.Sprintf("https://github.com/octocat/hello-world/pull/1#issuecomment-%d", id),
		CreatedAt:     fixtureCreated,
		UpdatedAt:     fixtureUpdated,
		AuthorUser:    model.User{Login: "bob", ID: 3, Type: "User"},
	}
}

func testReviewComment(id, prID int64) model.ReviewComment {
	position := 4
	return model.ReviewComment{
		ID:            id,
		PullRequestID: prID,
		Author:        "carol",
		Body:          "rename this",
		APIURL:        fmt.Sprintf("https://api.github.com/repos/octocat/hello-world/pulls/comments/%d", id),
		HTMLURL:       fmt.Sprintf("https://github.com/octocat/hello-world/pull/1#discussion_r%d", id),
		DiffHunk:      "@@ -1,3 +1,3 @@",
		Path:          "main.go",
		Position:      &position,
		CommitID:      "abc123",
		CreatedAt:     fixtureCreated,
		UpdatedAt:     fixtureUpdated,
		AuthorUser:    model.User{Login: "carol", ID: 4, Type: "User"},
	}
}

func testBatch() model.Batch {
	return model.Batch{
		Repository:     testRepository(),
		PullRequests:   []model.PullRequest{testPullRequest(101, 1), testPullRequest(102, 2)},
		IssueComments:  []model.IssueComment{testIssueComment(9001, 101)},
		ReviewComments: []model.ReviewComment{testReviewComment(9101, 101)},
		CycleStart:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.Reader.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
