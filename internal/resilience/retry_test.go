package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(eris.New("503"), 503)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		return "", NewTransientError(eris.New("always down"), 503)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls) // first attempt + 2 retries
}

func TestDoVal_QuotaNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		return "", NewQuotaError(eris.New("429"))
	})

	assert.True(t, IsQuota(err))
	assert.Equal(t, 1, calls)
}

func TestDoVal_NonTransientNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		return "", eris.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastRetry(), func(context.Context) (string, error) {
		calls++
		cancel()
		return "", NewTransientError(eris.New("503"), 503)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var attempts []int
	cfg := fastRetry()
	cfg.OnRetry = func(attempt int, _ error) {
		attempts = append(attempts, attempt)
	}

	_, _ = DoVal(context.Background(), cfg, func(context.Context) (string, error) {
		return "", NewTransientError(eris.New("503"), 503)
	})

	assert.Equal(t, []int{1, 2}, attempts)
}
