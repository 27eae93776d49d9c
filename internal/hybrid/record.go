package hybrid

import (
	"context"
	"time"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Record describes how one top-level request was resolved.
type Record struct {
	ID       string
	Started  time.Time
	Finished time.Time

	// Source is empty when Err is set.
	Source protocol.Source
	Calls  []protocol.Call

	TotalTimeMs float64
	LocalMs     float64
	RemoteMs    float64

	LocalAttempts int
	LocalTokens   int
	RemoteTokens  int
	FastPath      bool

	// Parts is the number of top-level clauses, 0 when the request was not
	// decomposed.
	Parts int
	// MaxDepth is the deepest decomposition level reached.
	MaxDepth int

	// Reason is the error code that sent the request to the cloud.
	Reason string
	Err    error
}

// OnDevice reports whether the request was answered locally.
func (r Record) OnDevice() bool {
	return r.Source == protocol.SourceOnDevice
}

// Fallback reports whether the request reached the remote model.
func (r Record) Fallback() bool {
	return r.Source == protocol.SourceCloud
}

func (r *Record) fill(st *run) {
	r.LocalMs = st.localMs
	r.LocalAttempts = st.attempts
	r.LocalTokens = st.localTokens
	r.FastPath = st.fastPath
	r.Parts = st.parts
	r.MaxDepth = st.depth
}

// Recorder receives a Record for every request an Orchestrator handles.
// Errors are logged and never reach the caller.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rec Record) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
