// Package hybrid provides the Orchestrator, which answers a request with
// on-device tool calls whenever the local model can be trusted and falls back
// to the cloud model exactly once when it cannot.
//
// Resolution order for one request:
//   - resolve the whole conversation locally (fast path, then consensus)
//   - split the latest user message into clauses and resolve each clause,
//     recursing into clauses that fail, up to MaxDepth
//   - if any clause still fails, discard every partial answer and send the
//     original request to the remote model
package hybrid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/internal/decompose"
	apperrors "github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/model"
	"github.com/flynn-ai/hybridcall/internal/resolver"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// DefaultMaxDepth bounds nested decomposition.
const DefaultMaxDepth = 2

// Config configures the Orchestrator.
type Config struct {
	Resolver  *resolver.Resolver
	Segmenter decompose.Segmenter
	Remote    model.Remote // nil disables the fallback
	Recorders []Recorder
	Logger    zerolog.Logger

	// MaxDepth is the deepest level a clause may be decomposed to. Clauses of
	// the top-level message are at depth 1, so the default of 2 allows one
	// nested split below the top-level split.
	MaxDepth int

	// ValidateRemote runs the validator over cloud calls and keeps the
	// coerced batch when it passes.
	ValidateRemote bool
}

// Orchestrator routes requests between the local and remote models.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	resolver       *resolver.Resolver
	segmenter      decompose.Segmenter
	remote         model.Remote
	recorders      []Recorder
	logger         zerolog.Logger
	maxDepth       int
	validateRemote bool
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg *Config) *Orchestrator {
	seg := cfg.Segmenter
	if seg == nil {
		seg = decompose.NewHeuristic()
	}
	depth := cfg.MaxDepth
	if depth < 0 {
		depth = 0
	}
	return &Orchestrator{
		resolver:       cfg.Resolver,
		segmenter:      seg,
		remote:         cfg.Remote,
		recorders:      cfg.Recorders,
		logger:         cfg.Logger,
		maxDepth:       depth,
		validateRemote: cfg.ValidateRemote,
	}
}

// AddRecorder registers r to receive a Record for every request. It must be
// called before the Orchestrator is shared.
func (o *Orchestrator) AddRecorder(r Recorder) {
	o.recorders = append(o.recorders, r)
}

// run carries the bookkeeping of one top-level request.
type run struct {
	localMs      float64
	attempts     int
	localTokens  int
	remoteTokens int
	parts        int
	depth        int
	fastPath     bool
	reason       error
}

// Generate resolves req into tool calls. The result is either entirely
// on-device or entirely from the remote model. Errors are the context's, the
// remote model's own error returned unchanged, or FALLBACK_UNAVAILABLE when
// no remote model is configured.
func (o *Orchestrator) Generate(ctx context.Context, req protocol.Request) (*protocol.HybridResult, error) {
	rec := Record{ID: uuid.NewString(), Started: time.Now()}
	log := o.logger.With().Str("request_id", rec.ID).Logger()

	st := &run{}
	calls, confidence, ok, err := o.resolve(ctx, req.Messages, req.Tools, 0, st, log)
	rec.fill(st)
	if err != nil {
		rec.Err = err
		o.record(ctx, rec, log)
		return nil, err
	}

	if ok {
		res := &protocol.HybridResult{
			FunctionCalls: calls,
			TotalTimeMs:   st.localMs,
			Source:        protocol.SourceOnDevice,
			Confidence:    &confidence,
		}
		rec.Source = res.Source
		rec.Calls = res.FunctionCalls
		rec.TotalTimeMs = res.TotalTimeMs
		log.Debug().
			Int("calls", len(calls)).
			Int("attempts", st.attempts).
			Float64("total_ms", st.localMs).
			Msg("resolved on-device")
		o.record(ctx, rec, log)
		return res, nil
	}

	rec.Reason = apperrors.CodeOf(st.reason)
	res, err := o.fallback(ctx, req, st, log)
	rec.RemoteTokens = st.remoteTokens
	if err != nil {
		rec.Err = err
		o.record(ctx, rec, log)
		return nil, err
	}
	rec.Source = res.Source
	rec.Calls = res.FunctionCalls
	rec.TotalTimeMs = res.TotalTimeMs
	rec.RemoteMs = res.TotalTimeMs - st.localMs
	o.record(ctx, rec, log)
	return res, nil
}

// resolve tries messages as a whole, then clause by clause. depth is the
// decomposition level of messages' latest user turn.
func (o *Orchestrator) resolve(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec, depth int, st *run, log zerolog.Logger) ([]protocol.Call, float64, bool, error) {
	if depth > st.depth {
		st.depth = depth
	}

	out, err := o.resolver.Resolve(ctx, messages, tools)
	st.localMs += out.TotalMs
	st.attempts += out.Attempts
	st.localTokens += out.Tokens
	if err != nil {
		return nil, 0, false, err
	}
	if out.Result != nil {
		if depth == 0 {
			st.fastPath = out.FastPath
		}
		return out.Result.Calls, out.Result.Confidence, true, nil
	}
	st.reason = out.Reason

	if depth >= o.maxDepth {
		return nil, 0, false, nil
	}

	idx := protocol.LastUser(messages)
	if idx < 0 {
		return nil, 0, false, nil
	}
	text := messages[idx].Content
	parts := o.segmenter.Segment(text)
	if len(parts) < 2 {
		st.reason = apperrors.NewBuilder(apperrors.CodeDecompositionFailure, "fewer than two clauses").
			Permanent().
			WithContext("depth", depth).
			Build()
		return nil, 0, false, nil
	}
	if depth == 0 {
		st.parts = len(parts)
	}
	log.Info().Int("depth", depth+1).Strs("parts", parts).Msg("decomposed request")

	base := protocol.WithoutUser(messages)
	var merged []protocol.Call
	confidence := 1.0
	for i, part := range parts {
		sub := make([]protocol.Message, 0, len(base)+1)
		sub = append(sub, base...)
		sub = append(sub, protocol.Message{Role: protocol.RoleUser, Content: part})

		calls, c, ok, err := o.resolve(ctx, sub, tools, depth+1, st, log)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok {
			st.reason = apperrors.NewBuilder(apperrors.CodeDecompositionFailure, "clause could not be resolved").
				Permanent().
				Wrap(st.reason).
				WithContext("clause", part).
				WithContext("index", i).
				WithContext("depth", depth+1).
				Build()
			log.Debug().Str("clause", part).Int("depth", depth+1).Msg("clause unresolved")
			return nil, 0, false, nil
		}
		merged = append(merged, calls...)
		confidence = min(confidence, c)
	}
	return merged, confidence, true, nil
}

// fallback issues the single remote call with the original request.
func (o *Orchestrator) fallback(ctx context.Context, req protocol.Request, st *run, log zerolog.Logger) (*protocol.HybridResult, error) {
	if o.remote == nil {
		return nil, apperrors.NewBuilder(apperrors.CodeFallbackUnavailable, "request needs the cloud model but none is configured").
			Permanent().
			Wrap(st.reason).
			WithSuggestion("enable [cloud] in the config and set the provider API key").
			Build()
	}

	log.Info().
		Str("reason", apperrors.CodeOf(st.reason)).
		Int("local_attempts", st.attempts).
		Msg("falling back to cloud")

	inf, err := o.remote.Generate(ctx, req.Messages, req.Tools)
	if err != nil {
		log.Error().Err(err).Msg("cloud fallback failed")
		return nil, err
	}

	calls := inf.Calls
	if o.validateRemote {
		if coerced, verr := schemas.Check(calls, req.Tools); verr == nil {
			calls = coerced
		} else {
			log.Warn().Err(verr).Msg("cloud calls do not match the tool schemas, returning them as is")
		}
	}
	if calls == nil {
		calls = []protocol.Call{}
	}
	st.remoteTokens = inf.Usage.Total()

	return &protocol.HybridResult{
		FunctionCalls: calls,
		TotalTimeMs:   st.localMs + inf.TotalTimeMs,
		Source:        protocol.SourceCloud,
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, rec Record, log zerolog.Logger) {
	rec.Finished = time.Now()
	// Recording outlives a canceled request.
	ctx = context.WithoutCancel(ctx)
	for _, r := range o.recorders {
		if err := r.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Msg("failed to record resolution")
		}
	}
}

// IsFallbackUnavailable reports whether err means the request needed the
// remote model and none was configured.
func IsFallbackUnavailable(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeFallbackUnavailable)
}
