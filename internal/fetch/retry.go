package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultAttempts is the per-fetch retry budget for transient errors.
	DefaultAttempts = 3

	// DefaultRetryDelay is the base delay for exponential backoff.
	DefaultRetryDelay = 500 * time.Millisecond
)

// statusError marks a retryable HTTP status so retry-go can distinguish it
// from terminal statuses. It never escapes Retrying.Fetch.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.status)
}

// RetryableStatus reports whether an HTTP status indicates a transient
// server-side condition worth another attempt.
func RetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}

// retryableNetworkErr reports whether err looks like a transient network
// failure (timeout, connection reset, refused). Caller cancellation is not
// retryable; a per-request deadline is.
func retryableNetworkErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retrying wraps a Fetcher with bounded exponential backoff for transient
// failures. 4xx statuses other than 429 are returned immediately: a 403 from
// an oversized IIIF width request is protocol feedback, not a fault.
type Retrying struct {
	next     Fetcher
	attempts uint
	delay    time.Duration
}

// NewRetrying creates a retrying Fetcher with the shared policy.
// attempts <= 0 selects DefaultAttempts.
func NewRetrying(next Fetcher, attempts int, delay time.Duration) *Retrying {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Retrying{next: next, attempts: uint(attempts), delay: delay}
}

// Fetch implements Fetcher. If every attempt fails on a retryable status,
// the last response is returned so callers can still inspect it.
func (r *Retrying) Fetch(ctx context.Context, req *Request) (*Response, error) {
	var last *Response

	err := retry.Do(
		func() error {
			resp, err := r.next.Fetch(ctx, req)
			if err != nil {
				return err
			}
			last = resp
			if RetryableStatus(resp.Status) {
				return &statusError{status: resp.Status}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return true
			}
			return retryableNetworkErr(err)
		}),
	)

	if err != nil {
		var se *statusError
		if errors.As(err, &se) && last != nil {
			// Retries exhausted on 5xx/429; surface the response.
			return last, nil
		}
		return nil, err
	}
	return last, nil
}
