package config

import (
	"fmt"
	"time"
)

// PollingConfig bounds the record status polling loop.
type PollingConfig struct {
	Interval    string `yaml:"interval"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// GetPollInterval returns the poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Polling.Interval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetPollCeiling returns the longest a poll loop can wait on timers.
func (c *Config) GetPollCeiling() time.Duration {
	return c.GetPollInterval() * time.Duration(c.Polling.MaxAttempts)
}

// ValidatePolling checks that polling bounds are usable.
func (c *Config) ValidatePolling() error {
	if c.Polling.MaxAttempts < 1 {
		return fmt.Errorf("polling max_attempts must be >= 1")
	}
	if c.Polling.Interval != "" {
		d, err := time.ParseDuration(c.Polling.Interval)
		if err != nil {
			return fmt.Errorf("invalid polling interval %q: %w", c.Polling.Interval, err)
		}
		if d <= 0 {
			return fmt.Errorf("polling interval must be positive")
		}
	}
	return nil
}
