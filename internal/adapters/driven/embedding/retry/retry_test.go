package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleeps replaces waiting with recording the requested delays.
func recordSleeps(p *Policy) *[]time.Duration {
	var delays []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return &delays
}

func TestPolicy_Do_SucceedsFirstTime(t *testing.T) {
	p := NewPolicy(0)
	delays := recordSleeps(p)
	calls := 0

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestPolicy_Do_RetriesTemporaryFailures(t *testing.T) {
	p := NewPolicy(0)
	delays := recordSleeps(p)
	calls := 0

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Provider: "test", StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, *delays)
}

func TestPolicy_Do_GivesUp(t *testing.T) {
	p := NewPolicy(0)
	recordSleeps(p)
	calls := 0
	failure := errors.New("connection reset")

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, DefaultMaxAttempts, calls)
}

func TestPolicy_Do_PermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &StatusError{Provider: "test", StatusCode: http.StatusUnauthorized}},
		{"permanent", Permanent(errors.New("bad json"))},
		{"cancelled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(0)
			recordSleeps(p)
			calls := 0

			err := p.Do(context.Background(), func(context.Context) error {
				calls++
				return tt.err
			})

			assert.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestPolicy_Do_HonoursRetryAfter(t *testing.T) {
	p := NewPolicy(0)
	delays := recordSleeps(p)
	calls := 0

	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 2 * time.Second}
		}
		return nil
	})

	assert.Equal(t, []time.Duration{2 * time.Second}, *delays)
}

func TestPolicy_Delay_Capped(t *testing.T) {
	p := NewPolicy(0)

	assert.Equal(t, DefaultMaxDelay, p.delay(10, errors.New("x")))
	assert.Equal(t, DefaultMaxDelay, p.delay(0, &StatusError{StatusCode: 429, RetryAfter: time.Hour}))
}

func TestPolicy_Do_ContextCancelledDuringWait(t *testing.T) {
	p := NewPolicy(0)
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := p.Do(ctx, func(context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_ZeroValue(t *testing.T) {
	var p Policy
	calls := 0

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("transient")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RateLimit(t *testing.T) {
	p := NewPolicy(50)
	start := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
	}

	// Burst of one: the second and third calls each wait about 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, 3*time.Second, ParseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-1"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	assert.Greater(t, ParseRetryAfter(future), 30*time.Second)
}

func TestStatusError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"1"}}}

	err := NewStatusError("ollama", resp, []byte("slow down"))

	assert.Equal(t, "ollama error (status 429): slow down", err.Error())
	assert.True(t, err.Temporary())
	assert.Equal(t, time.Second, err.RetryAfter)
	assert.False(t, (&StatusError{StatusCode: http.StatusBadRequest}).Temporary())
}
