package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

var errFlaky = errors.New("read tcp: connection reset by peer")

func TestDoVal_EventualSuccess(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), quickRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "passport", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "passport", got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), quickRetry(2), func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})
	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("invalid api key")
	calls := 0
	_, err := DoVal(context.Background(), quickRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ShouldRetryOverride(t *testing.T) {
	cfg := quickRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "try again" }

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("try again")
		}
		return 0, errors.New("hard stop")
	})
	require.EqualError(t, err, "hard stop")
	assert.Equal(t, 2, calls)
}

func TestDoVal_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, quickRetry(5), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errFlaky
	})
	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDoVal_OnRetryReportsAttempts(t *testing.T) {
	var attempts []int
	cfg := quickRetry(3)
	cfg.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, errFlaky
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoVal_ZeroConfigStillBounded(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	calls := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})
	require.Error(t, err)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, calls)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"reset in message", errors.New("read tcp: connection reset by peer"), true},
		{"overloaded upstream", errors.New("api error: overloaded_error"), true},
		{"throttled", errors.New("429 Too Many Requests"), true},
		{"unavailable", errors.New("503 Service Unavailable"), true},
		{"schema failure", errors.New("tool input violates schema"), false},
		{"bad key", errors.New("401 unauthorized"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
