package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts bounds how often a transiently failing operation is
	// attempted, including the first try.
	DefaultMaxAttempts = 3

	// DefaultInitialDelay is the backoff before the first retry; it doubles
	// on every subsequent retry.
	DefaultInitialDelay = 2 * time.Second

	minAttempts = 1
	maxAttempts = 10
	minDelay    = 1 * time.Second
	maxDelay    = 60 * time.Second
)

type (
	// Policy retries operations that fail with a transient classification,
	// sleeping with exponential backoff between attempts. A non-transient
	// failure surfaces immediately; exhausting the attempt budget surfaces
	// the final failure. The policy never swallows a terminal error.
	Policy struct {
		attempts     int
		initialDelay time.Duration
		logger       *slog.Logger
		timer        backoff.Timer
	}

	// Config holds the externally configurable knobs of a Policy. Values
	// outside the supported bounds are clamped, not rejected.
	Config struct {
		// MaxAttempts is the attempt budget per operation, in [1, 10].
		MaxAttempts int

		// InitialDelay is the first backoff delay, in [1s, 60s].
		InitialDelay time.Duration

		// Logger receives a record for every retry and terminal failure.
		Logger *slog.Logger

		// Timer overrides the backoff sleep mechanism; nil uses real time.
		// Tests inject a fake to assert the delay sequence.
		Timer backoff.Timer
	}
)

// New creates a retry policy from the given configuration, applying
// defaults and clamping out-of-bounds values.
func New(cfg Config) *Policy {
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}
	attempts = min(max(attempts, minAttempts), maxAttempts)

	delay := cfg.InitialDelay
	if delay == 0 {
		delay = DefaultInitialDelay
	}
	delay = min(max(delay, minDelay), maxDelay)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Policy{
		attempts:     attempts,
		initialDelay: delay,
		logger:       logger,
		timer:        cfg.Timer,
	}
}

// Execute runs op, retrying transient failures with doubling delays until
// success, a non-transient failure, or the attempt budget is exhausted.
// The returned error is always the operation's own error, never a backoff
// artifact.
func (p *Policy) Execute(ctx context.Context, name string, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.initialDelay
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxInterval = maxDelay
	expo.MaxElapsedTime = 0

	attempt := 0

	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if Classify(err) == NonTransient {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		p.logger.Warn("retrying after transient failure",
			"operation", name,
			"attempt", attempt,
			"class", string(Classify(err)),
			"delay", delay,
			"error", err,
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.attempts-1)), ctx)

	err := backoff.RetryNotifyWithTimer(wrapped, policy, notify, p.timer)
	if err != nil {
		p.logger.Error("operation failed terminally",
			"operation", name,
			"attempts", attempt,
			"class", string(Classify(err)),
			"error", err,
		)
	}
	return err
}
