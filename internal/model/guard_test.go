package model

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func TestGuarded_SingleCallByDefault(t *testing.T) {
	sentinel := fmt.Errorf("quota exhausted")
	calls := 0
	remote := RemoteFunc(func(context.Context, []protocol.Message, []protocol.ToolSpec) (Inference, error) {
		calls++
		return Inference{TotalTimeMs: 30}, sentinel
	})

	g := NewGuarded(remote, 0, nil)
	inf, err := g.Generate(context.Background(), nil, nil)
	assert.Same(t, sentinel, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, float64(30), inf.TotalTimeMs)
}

func TestGuarded_RetriesTemporaryAndSumsLatency(t *testing.T) {
	calls := 0
	remote := RemoteFunc(func(context.Context, []protocol.Message, []protocol.ToolSpec) (Inference, error) {
		calls++
		if calls == 1 {
			return Inference{TotalTimeMs: 10}, errors.Temporary(errors.CodeRemoteFailure, "503")
		}
		return Inference{Calls: []protocol.Call{{Name: "a"}}, TotalTimeMs: 20}, nil
	})

	g := NewGuarded(remote, 1, nil)
	g.retryPolicy.InitialDelay = time.Millisecond
	g.retryPolicy.Jitter = false

	inf, err := g.Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, float64(30), inf.TotalTimeMs)
	assert.Len(t, inf.Calls, 1)
}

func TestGuarded_BreakerOpens(t *testing.T) {
	remote := RemoteFunc(func(context.Context, []protocol.Message, []protocol.ToolSpec) (Inference, error) {
		return Inference{}, errors.Temporary(errors.CodeRemoteFailure, "503")
	})
	g := NewGuarded(remote, 0, &errors.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour, HalfOpenAttempts: 1})

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), nil, nil)
		require.Error(t, err)
	}
	assert.Equal(t, errors.StateOpen, g.BreakerState())

	_, err := g.Generate(context.Background(), nil, nil)
	assert.True(t, errors.HasCode(err, errors.CodeCircuitOpen))

	status := g.Status()
	assert.False(t, status.Available)
	assert.Equal(t, "open", status.Breaker)
}

func TestGuarded_PermanentErrorNotRetriedOrCounted(t *testing.T) {
	calls := 0
	remote := RemoteFunc(func(context.Context, []protocol.Message, []protocol.ToolSpec) (Inference, error) {
		calls++
		return Inference{}, errors.Permanent(errors.CodeRemoteFailure, "invalid api key")
	})
	g := NewGuarded(remote, 2, &errors.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour, HalfOpenAttempts: 1})
	g.retryPolicy.InitialDelay = time.Millisecond

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), nil, nil)
		require.Error(t, err)
		assert.Equal(t, errors.CategoryPermanent, errors.GetCategory(err))
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, errors.StateClosed, g.BreakerState())
}

func TestGuarded_RateLimitOpensBreaker(t *testing.T) {
	remote := RemoteFunc(func(context.Context, []protocol.Message, []protocol.ToolSpec) (Inference, error) {
		return Inference{}, errors.NewBuilder(errors.CodeRemoteRateLimit, "slow down").RateLimit(0).Build()
	})
	g := NewGuarded(remote, 0, &errors.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour, HalfOpenAttempts: 1})

	_, err := g.Generate(context.Background(), nil, nil)
	assert.True(t, errors.HasCode(err, errors.CodeRemoteRateLimit))
	assert.Equal(t, errors.StateOpen, g.BreakerState())
}
