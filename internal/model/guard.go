package model

import (
	"context"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Guarded wraps a Remote with a retry policy and a circuit breaker. The
// reported latency covers every attempt.
type Guarded struct {
	remote         Remote
	retryPolicy    *errors.Policy
	circuitBreaker *errors.CircuitBreaker
}

// NewGuarded creates a guarded remote. retries is the number of additional
// attempts after the first; zero means exactly one call.
func NewGuarded(remote Remote, retries int, breaker *errors.CircuitBreakerConfig) *Guarded {
	if breaker == nil {
		breaker = errors.DefaultCircuitBreakerConfig()
	}
	return &Guarded{
		remote:         remote,
		retryPolicy:    errors.CloudPolicy(retries),
		circuitBreaker: errors.NewCircuitBreaker("cloud", breaker),
	}
}

// Generate runs the wrapped remote through the breaker and retry policy.
// The error of the final attempt is returned as is.
func (g *Guarded) Generate(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	var spent float64
	inf, err := errors.ExecuteCircuitBreakerWithResult(g.circuitBreaker, func() (Inference, error) {
		return errors.DoWithResult(ctx, g.retryPolicy, func() (Inference, error) {
			inf, err := g.remote.Generate(ctx, messages, tools)
			spent += inf.TotalTimeMs
			return inf, err
		})
	})
	inf.TotalTimeMs = spent
	return inf, err
}

// BreakerState returns the circuit breaker state.
func (g *Guarded) BreakerState() errors.State {
	return g.circuitBreaker.State()
}

// Name returns the wrapped model's name.
func (g *Guarded) Name() string {
	if d, ok := g.remote.(Describer); ok {
		return d.Name()
	}
	return "cloud"
}

// Status returns the wrapped model's status with the breaker state.
func (g *Guarded) Status() *ModelStatus {
	status := &ModelStatus{Name: g.Name(), Available: true}
	if d, ok := g.remote.(Describer); ok {
		status = d.Status()
	}
	status.Breaker = g.BreakerState().String()
	if g.BreakerState() == errors.StateOpen {
		status.Available = false
	}
	return status
}
