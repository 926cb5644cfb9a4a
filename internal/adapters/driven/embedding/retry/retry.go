// Package retry wraps calls to remote embedding APIs with a request rate
// limit and bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Default policy values.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// StatusError is a non-2xx response from a remote API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewStatusError builds a StatusError from a response and its body.
func NewStatusError(provider string, resp *http.Response, body []byte) *StatusError {
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Policy decides how often and how fast a call is attempted.
// The zero value makes a single attempt with no rate limit.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPolicy returns the default policy limited to requestsPerSecond.
// A non-positive rate disables limiting.
func NewPolicy(requestsPerSecond float64) *Policy {
	p := &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
	if requestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return p
}

// Do calls fn until it succeeds, returns a permanent error, the context
// ends or the attempts run out. Every attempt waits for the rate limiter.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if p.limiter != nil {
			if werr := p.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}

		err = fn(ctx)
		if err == nil || !retryable(ctx, err) || attempt == attempts-1 {
			break
		}

		if werr := p.wait(ctx, p.delay(attempt, err)); werr != nil {
			return werr
		}
	}
	return err
}

// delay is BaseDelay doubled per attempt, capped at MaxDelay.
// A server-provided Retry-After wins when it is longer.
func (p *Policy) delay(attempt int, err error) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < p.BaseDelay) {
		d = p.MaxDelay
	}
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > d {
		d = se.RetryAfter
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable treats transport failures and temporary statuses as worth
// another attempt. Cancellation never is.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var pe *PermanentError
	return !errors.As(err, &pe)
}

// PermanentError marks a failure that retrying cannot fix, such as a
// response that does not decode.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Unparseable or past values give zero.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
