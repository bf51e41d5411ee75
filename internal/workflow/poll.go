package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yeoneunal/internal/logging"
)

// Verdict is a probe's judgement of one poll.
type Verdict int

const (
	// Continue polls again after the next interval.
	Continue Verdict = iota
	// Done stops polling successfully.
	Done
	// Fail stops polling with the probe's error.
	Fail
)

// PollConfig bounds a polling loop.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig polls every 2s for up to 600 attempts (20 minutes).
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 2 * time.Second, MaxAttempts: 600}
}

// Ceiling is the longest the loop can wait, excluding probe time.
func (c PollConfig) Ceiling() time.Duration {
	return c.Interval * time.Duration(c.MaxAttempts)
}

func (c PollConfig) normalized() PollConfig {
	d := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// ErrPollTimeout is returned when every attempt ran without a verdict.
var ErrPollTimeout = errors.New("polling attempts exhausted")

// ErrPollFailed is returned when a probe fails without giving a reason.
var ErrPollFailed = errors.New("poll failed")

// ProbeFunc checks the remote state once. An error returned with Continue is
// treated as transient: it uses up the attempt and polling goes on.
type ProbeFunc func(ctx context.Context, attempt int) (Verdict, error)

// Poll waits one interval, probes, and repeats until the probe returns Done
// or Fail, the attempts run out, or ctx ends. It returns the number of
// probes made.
func Poll(ctx context.Context, cfg PollConfig, probe ProbeFunc) (int, error) {
	cfg = cfg.normalized()
	timer := time.NewTimer(cfg.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(cfg.Interval)
		}
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-timer.C:
		}

		verdict, err := probe(ctx, attempt)
		switch verdict {
		case Done:
			return attempt, nil
		case Fail:
			if err == nil {
				err = ErrPollFailed
			}
			return attempt, err
		}
		if err != nil {
			logging.WorkflowDebug("poll attempt %d/%d: %v", attempt, cfg.MaxAttempts, err)
		}
	}
	return cfg.MaxAttempts, fmt.Errorf("%w after %d attempts", ErrPollTimeout, cfg.MaxAttempts)
}
