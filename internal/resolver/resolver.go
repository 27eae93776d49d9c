// Package resolver turns one conversation into validated tool calls using
// only the local model: a single high-confidence sample is accepted at once,
// otherwise a fixed budget of samples is put to a majority vote.
package resolver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/internal/consensus"
	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/model"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Config tunes the resolver.
type Config struct {
	ConfidenceThreshold float64
	SampleBudget        int
}

// DefaultConfig returns the standard threshold of 0.99 and a budget of 3.
func DefaultConfig() Config {
	return Config{ConfidenceThreshold: 0.99, SampleBudget: 3}
}

// Outcome reports one resolution attempt.
type Outcome struct {
	// Result is nil when the request could not be resolved on-device.
	Result *consensus.Result

	// TotalMs sums the latency of every local inference, failed ones included.
	TotalMs float64

	// Attempts is the number of local inferences issued.
	Attempts int

	// Valid is the number of attempts that passed validation.
	Valid int

	// FastPath is set when the first sample was accepted on its own.
	FastPath bool

	// Tokens counts tokens reported by the local model.
	Tokens int

	// Reason explains a nil Result (NO_CONSENSUS).
	Reason error
}

// Resolver runs fast-path and self-consistency resolution.
type Resolver struct {
	local  model.Local
	cfg    Config
	logger zerolog.Logger
}

// New creates a resolver over local.
func New(local model.Local, cfg Config, logger zerolog.Logger) *Resolver {
	if cfg.SampleBudget < 1 {
		cfg.SampleBudget = 1
	}
	return &Resolver{local: local, cfg: cfg, logger: logger}
}

// Resolve runs up to SampleBudget sequential local inferences. Invalid or
// unparsable samples abstain from the vote; they are not errors. The only
// error returned is the context's.
func (r *Resolver) Resolve(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Outcome, error) {
	var out Outcome
	var pool []consensus.Sample

	for out.Attempts < r.cfg.SampleBudget {
		s, ok, err := r.sample(ctx, messages, tools, &out)
		if err != nil {
			return out, err
		}
		if ok {
			pool = append(pool, s)
		}

		if out.Attempts == 1 && ok && s.Confidence >= r.cfg.ConfidenceThreshold {
			out.FastPath = true
			out.Result = &consensus.Result{Calls: s.Calls, Confidence: s.Confidence, LatencyMs: out.TotalMs}
			r.logger.Debug().
				Float64("confidence", s.Confidence).
				Float64("total_ms", out.TotalMs).
				Msg("fast path accepted")
			return out, nil
		}
	}

	res, ok := consensus.Pick(pool, out.Attempts)
	if !ok {
		out.Reason = errors.NewBuilder(errors.CodeNoConsensus, "no fingerprint reached a majority").
			Permanent().
			WithContext("attempts", out.Attempts).
			WithContext("valid", out.Valid).
			Build()
		r.logger.Debug().
			Int("attempts", out.Attempts).
			Int("valid", out.Valid).
			Msg("no consensus")
		return out, nil
	}

	res.LatencyMs = out.TotalMs
	out.Result = &res
	r.logger.Debug().
		Int("attempts", out.Attempts).
		Int("valid", out.Valid).
		Float64("confidence", res.Confidence).
		Msg("consensus reached")
	return out, nil
}

// sample runs one inference and validates it.
func (r *Resolver) sample(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec, out *Outcome) (consensus.Sample, bool, error) {
	inf, err := r.local.Infer(ctx, messages, tools)
	out.Attempts++
	out.TotalMs += inf.TotalTimeMs
	out.Tokens += inf.Usage.Total()

	if err != nil {
		if ctx.Err() != nil {
			return consensus.Sample{}, false, ctx.Err()
		}
		r.logger.Debug().Err(err).Int("attempt", out.Attempts).Msg("local inference failed, sample abstains")
		return consensus.Sample{}, false, nil
	}

	calls, err := schemas.Check(inf.Calls, tools)
	if err != nil {
		r.logger.Debug().Err(err).Int("attempt", out.Attempts).Msg("sample abstains")
		return consensus.Sample{}, false, nil
	}

	out.Valid++
	return consensus.Sample{Calls: calls, Confidence: inf.Confidence, LatencyMs: inf.TotalTimeMs}, true, nil
}
