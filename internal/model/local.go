package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/prompt"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// RuntimeConfig configures the on-device runtime client.
type RuntimeConfig struct {
	Endpoint      string // Default: http://127.0.0.1:8080
	Model         string
	MaxTokens     int
	ForceTools    bool
	StopSequences []string
	Timeout       time.Duration
}

// DefaultRuntimeConfig returns the defaults for a local function-calling model.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Endpoint:      "http://127.0.0.1:8080",
		Model:         "functiongemma-270m-it",
		MaxTokens:     256,
		ForceTools:    true,
		StopSequences: []string{"<|im_end|>", "<end_of_turn>"},
		Timeout:       60 * time.Second,
	}
}

// RuntimeClient talks to a local inference server over its OpenAI-compatible
// chat completions endpoint. One client is created per process and reused.
type RuntimeClient struct {
	cfg     *RuntimeConfig
	client  *http.Client
	prompts *prompt.Builder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRuntimeClient creates a new runtime client.
func NewRuntimeClient(cfg *RuntimeConfig, prompts *prompt.Builder, logger zerolog.Logger) *RuntimeClient {
	if cfg == nil {
		cfg = DefaultRuntimeConfig()
	}
	if prompts == nil {
		prompts = prompt.NewBuilder(prompt.ModeMinimal, "")
	}
	return &RuntimeClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		prompts: prompts,
		logger:  logger,
		now:     time.Now,
	}
}

// Infer sends one completion request. Transport and HTTP errors are returned
// as LOCAL_UNAVAILABLE; an unparsable body yields an empty, zero-confidence
// Inference and no error.
func (c *RuntimeClient) Infer(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	start := c.now()
	elapsed := func() float64 {
		return float64(c.now().Sub(start).Microseconds()) / 1000
	}

	body := map[string]any{
		"model":      c.cfg.Model,
		"messages":   c.prompts.Messages(messages, tools),
		"tools":      schemas.ToOpenAIFormat(tools),
		"max_tokens": c.cfg.MaxTokens,
	}
	if c.cfg.ForceTools {
		body["force_tools"] = true
		body["tool_choice"] = "required"
	}
	if len(c.cfg.StopSequences) > 0 {
		body["stop"] = c.cfg.StopSequences
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Inference{}, errors.Wrap(err, errors.CodeInvalidInput, "failed to marshal request", errors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(jsonBody))
	if err != nil {
		return Inference{}, errors.Wrap(err, errors.CodeLocalUnavailable, "failed to create HTTP request", errors.CategoryPermanent)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Inference{TotalTimeMs: elapsed()}, ctx.Err()
		}
		return Inference{TotalTimeMs: elapsed()}, errors.NewBuilder(errors.CodeLocalUnavailable, "local runtime request failed").
			Temporary().
			Wrap(err).
			WithContext("endpoint", c.cfg.Endpoint).
			WithSuggestion("Check that the local inference server is running").
			Build()
	}
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return Inference{TotalTimeMs: elapsed()}, errors.Wrap(readErr, errors.CodeLocalUnavailable, "failed to read response body", errors.CategoryTemporary)
	}

	if resp.StatusCode != http.StatusOK {
		return Inference{TotalTimeMs: elapsed()}, errors.NewBuilder(errors.CodeLocalUnavailable, fmt.Sprintf("local runtime error (status %d)", resp.StatusCode)).
			Temporary().
			WithContext("response", truncate(string(respBody), 200)).
			Build()
	}

	inf, err := ParseCompletion(respBody)
	if err != nil {
		c.logger.Debug().Err(err).Msg("unparsable local completion")
		return Inference{Calls: []protocol.Call{}, TotalTimeMs: elapsed()}, nil
	}
	if inf.TotalTimeMs <= 0 {
		inf.TotalTimeMs = elapsed()
	}
	return inf, nil
}

func (c *RuntimeClient) url() string {
	base := strings.TrimRight(c.cfg.Endpoint, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Ping checks that the runtime answers on its models endpoint.
func (c *RuntimeClient) Ping(ctx context.Context) error {
	base := strings.TrimSuffix(strings.TrimRight(c.cfg.Endpoint, "/"), "/v1")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}
	return nil
}

// Name returns the model name.
func (c *RuntimeClient) Name() string {
	return c.cfg.Model
}

// Status returns the model status.
func (c *RuntimeClient) Status() *ModelStatus {
	return &ModelStatus{
		Name:      c.Name(),
		Available: c.cfg.Endpoint != "",
		Local:     true,
		Endpoint:  c.cfg.Endpoint,
	}
}
