package model

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/internal/config"
	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/prompt"
)

// Collaborators holds the process-wide local and remote models. The local
// model is created once and shared by every request.
type Collaborators struct {
	Local  Local
	Remote Remote // nil when the cloud fallback is disabled
}

// FromConfig builds the collaborators described by cfg.
func FromConfig(cfg *config.Config, logger zerolog.Logger) (*Collaborators, error) {
	builder := prompt.NewBuilder(prompt.Mode(cfg.Local.PromptMode), cfg.Local.SystemPrompt)

	runtime := NewRuntimeClient(&RuntimeConfig{
		Endpoint:      cfg.Local.Endpoint,
		Model:         cfg.Local.Model,
		MaxTokens:     cfg.Local.MaxTokens,
		ForceTools:    cfg.Local.ForceTools,
		StopSequences: cfg.Local.StopSequences,
		Timeout:       cfg.Local.Timeout.Duration,
	}, builder, logger.With().Str("component", "local").Logger())

	c := &Collaborators{Local: NewPool(runtime, cfg.Local.Slots)}

	if !cfg.IsCloudEnabled() {
		return c, nil
	}

	cloud, err := NewCloudClient(&CloudConfig{
		Provider:         cfg.Cloud.Provider,
		Model:            cfg.Cloud.Model,
		APIKey:           cfg.Cloud.APIKey,
		BaseURL:          cfg.Cloud.BaseURL,
		MaxTokens:        cfg.Cloud.MaxTokens,
		Timeout:          cfg.Cloud.Timeout.Duration,
		UserMessagesOnly: cfg.Cloud.UserMessagesOnly,
	})
	if err != nil {
		return nil, err
	}
	c.Remote = NewGuarded(cloud, cfg.Cloud.MaxRetries, &errors.CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     60 * time.Second,
		HalfOpenAttempts: 1,
	})
	return c, nil
}

// Pinger is implemented by collaborators that can check reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status returns the status of all models, pinging the ones that support it.
func (c *Collaborators) Status(ctx context.Context) map[string]*ModelStatus {
	status := make(map[string]*ModelStatus)

	if c.Local != nil {
		status["local"] = describe(ctx, c.Local, true)
	}
	if c.Remote != nil {
		status["cloud"] = describe(ctx, c.Remote, false)
	} else {
		status["cloud"] = &ModelStatus{Name: "disabled", Error: "cloud fallback disabled"}
	}

	return status
}

func describe(ctx context.Context, m any, local bool) *ModelStatus {
	s := &ModelStatus{Name: "unknown", Available: true, Local: local}
	if d, ok := m.(Describer); ok {
		s = d.Status()
	}
	if p, ok := unwrapPinger(m); ok {
		if err := p.Ping(ctx); err != nil {
			s.Available = false
			s.Error = err.Error()
		}
	}
	return s
}

func unwrapPinger(m any) (Pinger, bool) {
	if pool, ok := m.(*Pool); ok {
		m = pool.local
	}
	p, ok := m.(Pinger)
	return p, ok
}
