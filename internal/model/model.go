// Package model provides the inference collaborators consumed by the
// resolver: a local on-device runtime and a remote cloud model.
package model

import (
	"context"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Local runs one on-device inference. Output that cannot be parsed is not an
// error: it comes back as an Inference with no calls and zero confidence.
// TotalTimeMs is filled in even when an error is returned.
type Local interface {
	Infer(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error)
}

// Remote runs one cloud inference.
type Remote interface {
	Generate(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error)
}

// Describer is implemented by collaborators that can report their status.
type Describer interface {
	// Name returns the model identifier.
	Name() string

	// Status returns the current status of the model.
	Status() *ModelStatus
}

// LocalFunc adapts a function to the Local interface.
type LocalFunc func(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error)

// Infer calls f.
func (f LocalFunc) Infer(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	return f(ctx, messages, tools)
}

// RemoteFunc adapts a function to the Remote interface.
type RemoteFunc func(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error)

// Generate calls f.
func (f RemoteFunc) Generate(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	return f(ctx, messages, tools)
}
