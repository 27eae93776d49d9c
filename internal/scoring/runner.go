package scoring

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Generator answers a request, typically a *hybrid.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, req protocol.Request) (*protocol.HybridResult, error)
}

// Report is the outcome of running a suite.
type Report struct {
	Suite   string         `json:"suite"`
	Results []CaseResult   `json:"results"`
	Levels  []LevelSummary `json:"levels"`
	Score   float64        `json:"total_score"`
}

// Runner runs suites case by case.
type Runner struct {
	gen    Generator
	logger zerolog.Logger

	// Progress, when set, is called after each case.
	Progress func(done, total int, r CaseResult)
}

// NewRunner creates a runner over gen.
func NewRunner(gen Generator, logger zerolog.Logger) *Runner {
	return &Runner{gen: gen, logger: logger}
}

// Run executes every case in order. A case whose generation fails scores 0
// and is reported with its error; only context cancellation stops the run.
func (r *Runner) Run(ctx context.Context, s *Suite) (*Report, error) {
	rep := &Report{Suite: s.Name, Results: make([]CaseResult, 0, len(s.Cases))}

	for i, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := CaseResult{
			Name:       c.Name,
			Difficulty: c.Difficulty,
			Expected:   c.ExpectedCalls,
		}

		out, err := r.gen.Generate(ctx, c.Request())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Error = err.Error()
			r.logger.Warn().Err(err).Str("case", c.Name).Msg("case failed")
		} else {
			res.Predicted = out.FunctionCalls
			res.TotalTimeMs = out.TotalTimeMs
			res.Source = out.Source
			res.F1 = F1(out.FunctionCalls, c.ExpectedCalls)
		}

		r.logger.Debug().
			Str("case", c.Name).
			Float64("f1", res.F1).
			Float64("total_ms", res.TotalTimeMs).
			Str("source", string(res.Source)).
			Msg("case scored")

		rep.Results = append(rep.Results, res)
		if r.Progress != nil {
			r.Progress(i+1, len(s.Cases), res)
		}
	}

	rep.Levels = Summarize(rep.Results)
	rep.Score = TotalScore(rep.Results)
	return rep, nil
}
