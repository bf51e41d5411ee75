package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollDoneOnAttempt(t *testing.T) {
	n, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond, MaxAttempts: 10},
		func(ctx context.Context, attempt int) (Verdict, error) {
			if attempt == 3 {
				return Done, nil
			}
			return Continue, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPollFailStopsImmediately(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	n, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond, MaxAttempts: 10},
		func(ctx context.Context, attempt int) (Verdict, error) {
			calls++
			return Fail, boom
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)

	_, err = Poll(context.Background(), PollConfig{Interval: time.Millisecond, MaxAttempts: 1},
		func(ctx context.Context, attempt int) (Verdict, error) { return Fail, nil })
	assert.ErrorIs(t, err, ErrPollFailed)
}

func TestPollTransientErrorsConsumeAttempts(t *testing.T) {
	calls := 0
	n, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond, MaxAttempts: 4},
		func(ctx context.Context, attempt int) (Verdict, error) {
			calls++
			return Continue, errors.New("HTTP 502")
		})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, calls)
}

func TestPollWaitsBeforeFirstProbe(t *testing.T) {
	start := time.Now()
	var firstAt time.Duration
	_, err := Poll(context.Background(), PollConfig{Interval: 20 * time.Millisecond, MaxAttempts: 1},
		func(ctx context.Context, attempt int) (Verdict, error) {
			firstAt = time.Since(start)
			return Done, nil
		})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, firstAt, 20*time.Millisecond)
}

func TestPollBoundedByCeiling(t *testing.T) {
	cfg := PollConfig{Interval: 10 * time.Millisecond, MaxAttempts: 5}
	start := time.Now()
	n, err := Poll(context.Background(), cfg, func(ctx context.Context, attempt int) (Verdict, error) {
		return Continue, nil
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 5, n)
	assert.GreaterOrEqual(t, elapsed, cfg.Ceiling())
	assert.Less(t, elapsed, cfg.Ceiling()+time.Second)
}

func TestPollCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	n, err := Poll(ctx, PollConfig{Interval: time.Hour, MaxAttempts: 3}, func(ctx context.Context, attempt int) (Verdict, error) {
		t.Fatal("probe must not run")
		return Done, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollConfigDefaults(t *testing.T) {
	cfg := PollConfig{}.normalized()
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 600, cfg.MaxAttempts)
	assert.Equal(t, 20*time.Minute, cfg.Ceiling())
}
