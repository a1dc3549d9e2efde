package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestWithBackoffRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(5), zaptest.NewLogger(t), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), zaptest.NewLogger(t), "broken", func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "broken failed after 3 attempts")
}

func TestWithBackoffStopsOnPermanent(t *testing.T) {
	bad := errors.New("bad payload")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(5), zaptest.NewLogger(t), "encode", func() error {
		calls++
		return Permanent(bad)
	})
	require.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithBackoff(ctx, fastConfig(5), zaptest.NewLogger(t), "cancelled", func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), Config{}, zaptest.NewLogger(t), "once", func() error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, Backoff(cfg, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(cfg, 3))
	assert.Equal(t, time.Second, Backoff(cfg, 10))

	cfg.JitterEnabled = true
	for i := 0; i < 50; i++ {
		d := Backoff(cfg, 2)
		assert.GreaterOrEqual(t, d, 170*time.Millisecond)
		assert.LessOrEqual(t, d, 230*time.Millisecond)
	}
}
