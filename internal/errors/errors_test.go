package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorIncludesCodeAndInner(t *testing.T) {
	err := Wrap(fmt.Errorf("connection refused"), CodeRemoteFailure, "cloud call failed", CategoryTemporary)
	assert.Equal(t, "[REMOTE_FAILURE] cloud call failed: connection refused", err.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeRemoteFailure, "x", CategoryTemporary))
}

func TestWrap_KeepsRetryability(t *testing.T) {
	inner := Temporary(CodeRemoteFailure, "503")
	outer := Wrap(inner, CodeFallbackUnavailable, "fallback", CategoryPermanent)
	assert.True(t, outer.Retryable)
	assert.True(t, HasCode(outer, CodeRemoteFailure))
	assert.True(t, HasCode(outer, CodeFallbackUnavailable))
	assert.Equal(t, CodeFallbackUnavailable, CodeOf(outer))
}

func TestBuilder(t *testing.T) {
	err := NewBuilder(CodeSchemaViolation, "unknown tool").
		Permanent().
		WithContext("tool", "fly").
		WithSuggestion("declare the tool").
		Build()

	assert.Equal(t, CategoryPermanent, GetCategory(err))
	assert.False(t, err.Retryable)
	assert.Equal(t, "fly", err.Context["tool"])
	assert.Contains(t, FormatUserMessage(err), "declare the tool")
}

func TestDoWithResult_RetriesThenSucceeds(t *testing.T) {
	policy := CloudPolicy(2)
	policy.InitialDelay = time.Millisecond
	policy.Jitter = false
	calls := 0
	got, err := DoWithResult(context.Background(), policy, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, Temporary(CodeRemoteFailure, "try again")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_ReturnsLastErrorUnwrapped(t *testing.T) {
	sentinel := fmt.Errorf("quota exceeded")
	calls := 0
	_, err := DoWithResult(context.Background(), nil, func() (int, error) {
		calls++
		return 0, sentinel
	})
	assert.Same(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_StopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), CloudPolicy(3), func() (int, error) {
		calls++
		return 0, Permanent(CodeRemoteFailure, "bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_HonorsRetryAfter(t *testing.T) {
	policy := CloudPolicy(1)
	policy.InitialDelay = time.Hour
	policy.MaxDelay = time.Hour
	policy.Jitter = false

	calls := 0
	start := time.Now()
	_, err := DoWithResult(context.Background(), policy, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, NewBuilder(CodeRemoteRateLimit, "slow down").RateLimit(time.Millisecond).Build()
		}
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func call(cb *CircuitBreaker, err error) error {
	_, got := ExecuteCircuitBreakerWithResult(cb, func() (struct{}, error) {
		return struct{}{}, err
	})
	return got
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("cloud", &CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute, HalfOpenAttempts: 1})
	cb.now = func() time.Time { return now }

	down := fmt.Errorf("down")
	require.Error(t, call(cb, down))
	require.Error(t, call(cb, down))
	assert.Equal(t, StateOpen, cb.State())

	err := call(cb, nil)
	assert.True(t, HasCode(err, CodeCircuitOpen))

	now = now.Add(2 * time.Minute)
	require.NoError(t, call(cb, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("cloud", &CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, HalfOpenAttempts: 1})
	cb.now = func() time.Time { return now }

	require.Error(t, call(cb, fmt.Errorf("down")))
	now = now.Add(2 * time.Second)
	require.Error(t, call(cb, Temporary(CodeRemoteFailure, "still down")))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CountsOnlyServiceFailures(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("cloud", &CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, HalfOpenAttempts: 1})
	cb.now = func() time.Time { return now }

	require.Error(t, call(cb, context.Canceled))
	require.Error(t, call(cb, User(CodeInvalidInput, "bad request")))
	require.Error(t, call(cb, Permanent(CodeRemoteFailure, "invalid API key")))
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, call(cb, NewBuilder(CodeRemoteRateLimit, "429").RateLimit(0).Build()))
	assert.Equal(t, StateOpen, cb.State())

	// An ignored error while half-open frees the half-open slot for the next call.
	now = now.Add(2 * time.Second)
	require.Error(t, call(cb, context.DeadlineExceeded))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, call(cb, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBuilder_RateLimit(t *testing.T) {
	err := NewBuilder(CodeRemoteRateLimit, "slow down").RateLimit(30 * time.Second).Build()
	assert.Equal(t, CategoryRateLimit, GetCategory(err))
	assert.True(t, err.Retryable)
	assert.Equal(t, 30*time.Second, GetRetryAfter(err))
	assert.Contains(t, FormatUserMessage(err), "Wait 30s")
}

func TestCloudPolicy(t *testing.T) {
	policy := CloudPolicy(2)
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.True(t, policy.RetryIf(Temporary(CodeRemoteFailure, "503")))
	assert.True(t, policy.RetryIf(NewBuilder(CodeRemoteRateLimit, "slow down").RateLimit(time.Second).Build()))
	assert.True(t, policy.RetryIf(fmt.Errorf("connection reset")))
	assert.False(t, policy.RetryIf(Permanent(CodeRemoteFailure, "bad key")))
	assert.False(t, policy.RetryIf(User(CodeInvalidInput, "bad request")))
}
