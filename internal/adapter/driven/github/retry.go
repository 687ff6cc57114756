package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// retryPolicy bounds retries of transient network failures with exponential
// backoff. Waits are cancellable through the caller's context. Permanent
// failures (credential rejection, missing repositories, validation) are
// surfaced immediately without retrying.
type retryPolicy struct {
	maxAttempts     uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:     3,
		initialInterval: 1 * time.Second,
		maxInterval:     30 * time.Second,
	}
}

// do runs fn until it succeeds, fails permanently, or exhausts the attempt
// budget. fn is expected to return classified errors (see classify).
func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval
	bo.MaxInterval = p.maxInterval

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, p.maxAttempts), ctx))
}

// classify maps go-github error responses onto the port error taxonomy so
// callers can match with errors.Is.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", driven.ErrAuthentication, err)
		case http.StatusForbidden:
			// A plain 403 (not a rate-limit response, which go-github
			// reports as RateLimitError) means the token lacks access.
			return fmt.Errorf("%w: %v", driven.ErrAuthentication, err)
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %v", driven.ErrRepoNotFound, err)
		}
	}

	return err
}

// isTransient reports whether err is worth retrying: rate-limit responses
// that slipped past the gate and connection-level failures. Classified
// sentinel errors, validation errors, and context cancellation are final.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, driven.ErrAuthentication),
		errors.Is(err, driven.ErrRepoNotFound),
		errors.Is(err, driven.ErrValidation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode >= 500
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
