package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			assert.Equal(t, test.expected, backoff.NextDelay(test.attempt))
		})
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: 5 * time.Millisecond},
		RetryIf:     errs.IsRetryable,
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errs.ExternalAPI(503, "Service temporarily unavailable")
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoReturnsLastErrorUnchanged(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errs.Transport(nil, "connection reset")
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, errs.ErrorTypeTransport, errs.TypeOf(err))
	assert.Equal(t, "connection reset", err.Error())
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errs.ExternalAPI(400, "Invalid image URL")
	}, fastConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoSingleAttemptWhenMaxAttemptsUnset(t *testing.T) {
	attempts := 0
	cfg := fastConfig(0)
	_ = Do(context.Background(), func() error {
		attempts++
		return errs.Transport(nil, "down")
	}, cfg)

	assert.Equal(t, 1, attempts)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) { cancel() }

	err := Do(ctx, func() error {
		return errs.Transport(nil, "down")
	}, cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDoDefaultsMissingBackoff(t *testing.T) {
	attempts := 0
	cfg := &Config{MaxAttempts: 2}

	err := Do(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return errs.ExternalAPI(429, "Application request limit reached")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWait(t *testing.T) {
	start := time.Now()
	require.NoError(t, Wait(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
