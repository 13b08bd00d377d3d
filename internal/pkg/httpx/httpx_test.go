package httpx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", statusErr(429), true},
		{"503 wrapped", fmt.Errorf("call: %w", statusErr(503)), true},
		{"400", statusErr(400), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryableError(tc.err))
		})
	}
}

func TestJitterSleepBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := JitterSleep(time.Second)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
	assert.Zero(t, JitterSleep(0))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	var retried []int
	err := Retry(context.Background(), Policy{MaxRetries: 3, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(502)
		}
		return nil
	}, func(attempt int, _ time.Duration, _ error) {
		retried = append(retried, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxRetries: 2, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return statusErr(500)
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxRetries: 5, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return statusErr(404)
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, Policy{MaxRetries: 5}, func(context.Context) error {
		calls++
		return nil
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
