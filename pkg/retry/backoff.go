package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/utils"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultConfig suits best-effort writes to external sinks: a handful of quick attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
}

// ConfigFromEnv overlays <prefix>_RETRY_* environment variables on DefaultConfig.
func ConfigFromEnv(prefix string) Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = utils.EnvInt(prefix+"_RETRY_ATTEMPTS", cfg.MaxAttempts)
	cfg.InitialDelay = utils.EnvDuration(prefix+"_RETRY_INITIAL_DELAY", cfg.InitialDelay)
	cfg.MaxDelay = utils.EnvDuration(prefix+"_RETRY_MAX_DELAY", cfg.MaxDelay)
	return cfg
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. WithBackoff returns it unwrapped on first sight.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithBackoff runs fn until it succeeds, returns a Permanent error, ctx ends or the attempts run
// out. Delays grow exponentially with optional jitter.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("%s: %w", operation, perm.err)
		}
		if attempt >= attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
		}

		delay := Backoff(cfg, attempt)
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}
}

// Backoff returns the delay before retry number attempt (1-based).
func Backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// +/-15% spreads concurrent retries apart.
	if cfg.JitterEnabled {
		delay += rand.Float64()*0.3*delay - 0.15*delay
	}
	return time.Duration(delay)
}
