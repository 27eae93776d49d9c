package model

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/voocel/litellm"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// CloudConfig configures the cloud fallback client.
type CloudConfig struct {
	Provider    string // gemini, openai, anthropic
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// UserMessagesOnly forwards only user-authored turns.
	UserMessagesOnly bool
}

// DefaultCloudConfig returns the Gemini defaults.
func DefaultCloudConfig(apiKey string) *CloudConfig {
	return &CloudConfig{
		Provider:         "gemini",
		Model:            "gemini-2.5-flash",
		APIKey:           apiKey,
		MaxTokens:        1024,
		Timeout:          60 * time.Second,
		UserMessagesOnly: true,
	}
}

// CloudClient is the Remote collaborator backed by litellm.
type CloudClient struct {
	cfg    *CloudConfig
	client *litellm.Client
	now    func() time.Time
}

// NewCloudClient creates a new cloud client.
func NewCloudClient(cfg *CloudConfig) (*CloudClient, error) {
	if cfg == nil {
		return nil, errors.User(errors.CodeConfigInvalid, "cloud config is required")
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "", "gemini", "openai", "anthropic":
	default:
		return nil, errors.NewBuilder(errors.CodeConfigInvalid, "unknown cloud provider: "+cfg.Provider).
			User().
			WithSuggestion("Use one of: gemini, openai, anthropic").
			Build()
	}

	c := &CloudClient{cfg: cfg, now: time.Now}
	if cfg.APIKey == "" {
		return c, nil
	}

	// Retries belong to Guarded, so the litellm transport makes one attempt.
	resilience := litellm.DefaultResilienceConfig()
	resilience.MaxRetries = 0
	if cfg.Timeout > 0 {
		resilience.RequestTimeout = cfg.Timeout
	}
	opts := []litellm.ClientOption{litellm.WithResilience(resilience)}
	if cfg.MaxTokens > 0 {
		opts = append(opts, litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature))
	}

	switch provider {
	case "openai":
		opts = append(opts, litellm.WithOpenAI(cfg.APIKey, cfg.BaseURL))
	case "anthropic":
		opts = append(opts, litellm.WithAnthropic(cfg.APIKey, cfg.BaseURL))
	default:
		opts = append(opts, litellm.WithGemini(cfg.APIKey, cfg.BaseURL))
	}
	c.client = litellm.New(opts...)

	return c, nil
}

// Generate sends the conversation to the cloud model. TotalTimeMs is the
// measured wall-clock time of the call.
func (c *CloudClient) Generate(ctx context.Context, messages []protocol.Message, tools []protocol.ToolSpec) (Inference, error) {
	if !c.IsAvailable() {
		return Inference{}, errors.NewBuilder(errors.CodeFallbackUnavailable, "cloud API key not configured").
			System().
			WithSuggestion("Set GEMINI_API_KEY or configure [cloud] api_key in config.toml").
			Build()
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := &litellm.Request{
		Model:    c.cfg.Model,
		Messages: toLiteLLMMessages(messages, c.cfg.UserMessagesOnly),
		Tools:    toLiteLLMTools(tools),
	}
	if c.cfg.Temperature != 0 {
		req.Temperature = litellm.Float64Ptr(c.cfg.Temperature)
	}
	if c.cfg.MaxTokens != 0 {
		req.MaxTokens = litellm.IntPtr(c.cfg.MaxTokens)
	}

	start := c.now()
	resp, err := c.client.Chat(ctx, req)
	elapsed := float64(c.now().Sub(start).Microseconds()) / 1000
	if err != nil {
		return Inference{TotalTimeMs: elapsed}, classifyCloudError(err, c.cfg.Model)
	}

	inf := Inference{
		Calls:       fromLiteLLMToolCalls(resp.ToolCalls),
		TotalTimeMs: elapsed,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	return inf, nil
}

// IsAvailable checks if the client is configured.
func (c *CloudClient) IsAvailable() bool {
	return c != nil && c.client != nil && c.cfg.APIKey != ""
}

// Name returns the model name.
func (c *CloudClient) Name() string {
	if c.cfg != nil {
		return c.cfg.Model
	}
	return "cloud"
}

// Status returns the model status.
func (c *CloudClient) Status() *ModelStatus {
	status := &ModelStatus{
		Name:      c.Name(),
		Available: c.IsAvailable(),
		Endpoint:  c.cfg.Provider,
	}
	if !status.Available {
		status.Error = "no API key"
	}
	return status
}

func toLiteLLMMessages(messages []protocol.Message, userOnly bool) []litellm.Message {
	result := make([]litellm.Message, 0, len(messages))
	for _, m := range messages {
		if userOnly && m.Role != protocol.RoleUser {
			continue
		}
		result = append(result, litellm.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return result
}

func toLiteLLMTools(tools []protocol.ToolSpec) []litellm.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]litellm.Tool, len(tools))
	for i, t := range tools {
		result[i] = litellm.Tool{
			Type: "function",
			Function: litellm.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.FunctionFormat(),
			},
		}
	}
	return result
}

func fromLiteLLMToolCalls(toolCalls []litellm.ToolCall) []protocol.Call {
	calls := make([]protocol.Call, 0, len(toolCalls))
	for _, tc := range toolCalls {
		calls = append(calls, protocol.Call{
			Name:      tc.Function.Name,
			Arguments: decodeToolArguments(tc.Function.Arguments),
		})
	}
	return calls
}

// decodeToolArguments parses a JSON arguments string. Text that is not a
// JSON object is kept under "raw".
func decodeToolArguments(s string) map[string]any {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(s), &args); err != nil || args == nil {
		return map[string]any{"raw": s}
	}
	return args
}

var statusPattern = regexp.MustCompile(`(?:API error|HTTP) (\d{3})`)

// cloudStatus extracts the HTTP status and retry delay from a litellm error.
// Typed errors carry them; provider errors only mention the status in text.
func cloudStatus(err error) (int, time.Duration) {
	var lerr *litellm.LiteLLMError
	if errors.As(err, &lerr) {
		after := time.Duration(lerr.RetryAfter) * time.Second
		switch lerr.Type {
		case litellm.ErrorTypeRateLimit:
			return http.StatusTooManyRequests, after
		case litellm.ErrorTypeAuth:
			return http.StatusUnauthorized, 0
		case litellm.ErrorTypeQuota:
			return http.StatusPaymentRequired, 0
		case litellm.ErrorTypeValidation, litellm.ErrorTypeModel:
			return http.StatusBadRequest, 0
		}
		if lerr.StatusCode != 0 {
			return lerr.StatusCode, 0
		}
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code, 0
	}
	return 0, 0
}

// classifyCloudError maps a provider failure onto the error taxonomy:
// 429 is rate limited, other 4xx are permanent, everything else is temporary.
func classifyCloudError(err error, model string) error {
	status, retryAfter := cloudStatus(err)

	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewBuilder(errors.CodeRemoteRateLimit, "cloud provider rate limit exceeded").
			RateLimit(retryAfter).
			Wrap(err).
			WithContext("model", model).
			Build()
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewBuilder(errors.CodeRemoteFailure, "cloud provider rejected the API key").
			Permanent().
			Wrap(err).
			WithContext("model", model).
			WithSuggestion("Check [cloud] api_key or the provider key environment variable").
			Build()
	case status == http.StatusPaymentRequired:
		return errors.NewBuilder(errors.CodeRemoteFailure, "cloud provider quota exhausted").
			Permanent().
			Wrap(err).
			WithContext("model", model).
			WithSuggestion("Check the billing status of the cloud provider account").
			Build()
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
		return errors.NewBuilder(errors.CodeRemoteFailure, "cloud provider rejected the request").
			Permanent().
			Wrap(err).
			WithContext("model", model).
			WithContext("status", status).
			Build()
	}

	b := errors.NewBuilder(errors.CodeRemoteFailure, "cloud completion failed").
		Temporary().
		Wrap(err).
		WithContext("model", model)
	if status != 0 {
		b.WithContext("status", status)
	}
	return b.Build()
}
