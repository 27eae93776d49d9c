package model

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Pool bounds the number of in-flight calls to a Local collaborator. A
// single loaded model accepts one call at a time, which is the default.
type Pool struct {
	local    Local
	sem      *semaphore.Weighted
	slots    int64
	inFlight atomic.Int64
}

// NewPool wraps local with slots concurrent calls.
func NewPool(local Local, slots int) *Pool {
	if slots < 1 {
		slots = 1
	}
	return &Pool{
		local: local,
		sem:   semaphore.NewWeighted(int64(slots)),
		slots: int64(slots),
	}
}

// Infer waits for a free slot and runs the inference.
func (p *Pool) Infer(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Inference{}, err
	}
	defer p.sem.Release(1)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	return p.local.Infer(ctx, messages, tools)
}

// Slots returns the configured concurrency.
func (p *Pool) Slots() int64 {
	return p.slots
}

// Name returns the wrapped model's name.
func (p *Pool) Name() string {
	if d, ok := p.local.(Describer); ok {
		return d.Name()
	}
	return "local"
}

// Status returns the wrapped model's status with the in-flight count.
func (p *Pool) Status() *ModelStatus {
	status := &ModelStatus{Name: p.Name(), Available: true, Local: true}
	if d, ok := p.local.(Describer); ok {
		status = d.Status()
	}
	status.InFlight = p.inFlight.Load()
	return status
}
