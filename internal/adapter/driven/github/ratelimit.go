package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
)

// quotaGate paces outbound requests against the primary rate-limit budget.
// The budget is shared across every call made with one credential, so a
// single gate guards all requests through a Client; concurrent workers
// observe the same remaining/reset pair under one mutex.
type quotaGate struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	observed  bool
	nextSlot  time.Time
	floor     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// newQuotaGate returns a gate enforcing the given inter-request delay floor.
func newQuotaGate(floor time.Duration) *quotaGate {
	return &quotaGate{
		floor: floor,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait blocks until the next request may be issued: past the inter-request
// floor, and past the quota reset time when the previously observed
// remaining budget is zero. The wait is cancellable through ctx.
func (g *quotaGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	now := g.now()

	var delay time.Duration
	if g.nextSlot.After(now) {
		delay = g.nextSlot.Sub(now)
	}
	if g.observed && g.remaining == 0 {
		if until := g.reset.Sub(now); until > delay {
			delay = until
		}
	}
	// Reserve this caller's slot so concurrent workers queue behind it.
	g.nextSlot = now.Add(delay + g.floor)
	g.mu.Unlock()

	return g.sleep(ctx, delay)
}

// Update records the quota budget observed on a response. Responses without
// rate headers produce a zero gh.Rate and are ignored.
func (g *quotaGate) Update(rate gh.Rate) {
	if rate.Limit == 0 && rate.Remaining == 0 && rate.Reset.IsZero() {
		return
	}

	g.mu.Lock()
	g.remaining = rate.Remaining
	g.reset = rate.Reset.Time
	g.observed = true
	g.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
