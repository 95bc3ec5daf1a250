package remote

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

// backoff is how Ping retries a request that may heal by waiting.
type backoff struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
	// retryable classifies a failed attempt; false ends the loop.
	retryable func(error) bool
}

var pingBackoff = backoff{
	attempts:  3,
	base:      500 * time.Millisecond,
	ceiling:   5 * time.Second,
	retryable: retryable,
}

// retryable reports whether a remote call failure is transient: transport
// errors, 429 and 5xx responses. A 401 and every other status are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// run calls fn until it succeeds, returns a final error, the attempts run
// out or ctx ends.
func (b backoff) run(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !b.retryable(err) {
			return err
		}
		if attempt >= b.attempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		t := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("waiting to retry: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// delay is uniform in [d/2, d) where d doubles from base with every
// attempt and stops at ceiling.
func (b backoff) delay(attempt int) time.Duration {
	d := b.ceiling
	if attempt < 32 {
		if shifted := b.base << (attempt - 1); shifted > 0 {
			d = min(shifted, b.ceiling)
		}
	}
	if d <= 1 {
		return d
	}
	return d/2 + rand.N(d/2)
}
