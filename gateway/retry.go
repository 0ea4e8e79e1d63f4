package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type BackoffConfig struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Jitter       bool          `mapstructure:"jitter"`
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Attempts:     3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// NextBackoffDelay returns the delay before attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return 0
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-2))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// Definite reports whether err is a final answer from the rail: success, or
// a refusal that guarantees no funds moved. Anything else leaves the outcome
// unknown, since the rail may have acted before the answer was lost.
func Definite(err error) bool {
	return err == nil || errors.Is(err, ErrRejected) || errors.Is(err, ErrInsufficientBalance)
}

// Retryable reports whether a failed call may succeed when replayed with the
// same idempotency key.
func Retryable(err error) bool {
	return !Definite(err)
}

// Retry calls fn until it succeeds, fails permanently, ctx ends or the
// attempts run out. It returns the last error.
func Retry(ctx context.Context, cfg BackoffConfig, logger cmtlog.Logger, op string, fn func(ctx context.Context) error) (err error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && ctx.Err() != nil {
			return
		}
		if delay := NextBackoffDelay(cfg, attempt, rng); delay > 0 {
			if !sleep(ctx, delay) {
				if err == nil {
					err = ctx.Err()
				}
				return
			}
		}
		err = fn(ctx)
		if !Retryable(err) {
			return
		}
		logger.Info("payment rail call failed", "op", op, "attempt", attempt, "err", err)
	}
	return
}

// Settle replays fn in rounds of Retry until the rail gives a definite
// answer. fn must reuse one idempotency key so a replay cannot move funds
// twice. Only the end of ctx stops it early, with an error wrapping
// ErrOutcomeUnknown; callers keep their reservations in that case.
func Settle(ctx context.Context, cfg BackoffConfig, logger cmtlog.Logger, op string, fn func(ctx context.Context) error) error {
	pause := cfg.MaxDelay
	if pause <= 0 {
		pause = cfg.InitialDelay
	}
	for round := 1; ; round++ {
		err := Retry(ctx, cfg, logger, op, fn)
		if Definite(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrOutcomeUnknown, op, err)
		}
		logger.Error("payment rail outcome unknown, replaying", "op", op, "round", round, "err", err)
		if pause > 0 && !sleep(ctx, pause) {
			return fmt.Errorf("%w: %s: %w", ErrOutcomeUnknown, op, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
