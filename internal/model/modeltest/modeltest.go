// Package modeltest provides scripted collaborators for tests.
package modeltest

import (
	"context"
	"sync"

	"github.com/flynn-ai/hybridcall/internal/model"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Step is one scripted response.
type Step struct {
	Inference model.Inference
	Err       error
}

// Local replays scripted responses keyed by the content of the latest user
// message. When a key's script runs out its last step repeats; unknown keys
// get Fallback.
type Local struct {
	mu       sync.Mutex
	scripts  map[string][]Step
	served   map[string]int
	Fallback Step
	calls    []string
}

// NewLocal creates an empty scripted local model.
func NewLocal() *Local {
	return &Local{
		scripts: make(map[string][]Step),
		served:  make(map[string]int),
	}
}

// On appends steps for requests whose latest user message is content.
func (l *Local) On(content string, steps ...Step) *Local {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripts[content] = append(l.scripts[content], steps...)
	return l
}

// Infer implements model.Local.
func (l *Local) Infer(ctx context.Context, messages []protocol.Message, _ []protocol.ToolSpec) (model.Inference, error) {
	if err := ctx.Err(); err != nil {
		return model.Inference{}, err
	}

	key := ""
	if i := protocol.LastUser(messages); i >= 0 {
		key = messages[i].Content
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, key)

	steps := l.scripts[key]
	if len(steps) == 0 {
		return l.Fallback.Inference, l.Fallback.Err
	}
	n := l.served[key]
	l.served[key] = n + 1
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n].Inference, steps[n].Err
}

// Calls returns the number of inferences served.
func (l *Local) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// CallsFor returns the number of inferences served for content.
func (l *Local) CallsFor(content string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == content {
			n++
		}
	}
	return n
}

// Remote is a scripted cloud model that records what it was sent.
type Remote struct {
	mu       sync.Mutex
	Response Step
	received [][]protocol.Message
}

// Generate implements model.Remote.
func (r *Remote) Generate(ctx context.Context, messages []protocol.Message, _ []protocol.ToolSpec) (model.Inference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, append([]protocol.Message(nil), messages...))
	return r.Response.Inference, r.Response.Err
}

// Calls returns the number of Generate calls.
func (r *Remote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

// Received returns the messages of the i-th call.
func (r *Remote) Received(i int) []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received[i]
}

// Calls builds an inference with the given calls, confidence and latency.
func Calls(confidence, latencyMs float64, calls ...protocol.Call) Step {
	return Step{Inference: model.Inference{Calls: calls, Confidence: confidence, TotalTimeMs: latencyMs}}
}

// Garbage is an unparsable sample: no calls, zero confidence.
func Garbage(latencyMs float64) Step {
	return Step{Inference: model.Inference{Calls: []protocol.Call{}, TotalTimeMs: latencyMs}}
}

// Call is shorthand for a protocol.Call.
func Call(name string, kv ...any) protocol.Call {
	args := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i].(string)] = kv[i+1]
	}
	return protocol.Call{Name: name, Arguments: args}
}
