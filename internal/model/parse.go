package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// ParseCompletion decodes a local runtime response body. Accepted shapes, in
// order:
//
//   - the runtime's native payload {"function_calls", "total_time_ms", "confidence"}
//   - an OpenAI chat completion, with calls in tool_calls or in the content text
//   - a bare call array, a single call object, or text wrapped in <tool_call> tags
//
// The last two carry no confidence, so it stays 0. Anything else is a
// PARSE_FAILURE.
func ParseCompletion(raw []byte) (Inference, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return Inference{}, errors.Permanent(errors.CodeParseFailure, "empty completion")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if _, ok := envelope["function_calls"]; ok {
			return parseNative(body)
		}
		if _, ok := envelope["choices"]; ok {
			return parseChat(body)
		}
	}

	calls, ok := parseTextCalls(string(body))
	if !ok {
		return Inference{}, errors.NewBuilder(errors.CodeParseFailure, "completion is not a tool call payload").
			Permanent().
			WithContext("body", truncate(string(body), 200)).
			Build()
	}
	return Inference{Calls: calls}, nil
}

// wireCall accepts arguments either as an object or as a JSON-encoded string.
type wireCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (w wireCall) toCall() protocol.Call {
	return protocol.Call{Name: w.Name, Arguments: decodeArguments(w.Arguments)}
}

func decodeArguments(raw json.RawMessage) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return map[string]any{}
		}
		raw = []byte(s)
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

type nativePayload struct {
	FunctionCalls []wireCall `json:"function_calls"`
	TotalTimeMs   float64    `json:"total_time_ms"`
	Confidence    float64    `json:"confidence"`
	PrefillTokens int        `json:"prefill_tokens"`
	DecodeTokens  int        `json:"decode_tokens"`
}

func parseNative(body []byte) (Inference, error) {
	var p nativePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Inference{}, errors.Wrap(err, errors.CodeParseFailure, "malformed runtime payload", errors.CategoryPermanent)
	}
	inf := Inference{
		Calls:       make([]protocol.Call, 0, len(p.FunctionCalls)),
		TotalTimeMs: p.TotalTimeMs,
		Confidence:  p.Confidence,
		Usage:       Usage{PromptTokens: p.PrefillTokens, CompletionTokens: p.DecodeTokens},
	}
	for _, c := range p.FunctionCalls {
		inf.Calls = append(inf.Calls, c.toCall())
	}
	return inf, nil
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Type     string   `json:"type"`
				Function wireCall `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`

	// Non-standard fields some local servers add.
	Confidence  float64 `json:"confidence"`
	TotalTimeMs float64 `json:"total_time_ms"`
}

func parseChat(body []byte) (Inference, error) {
	var c chatCompletion
	if err := json.Unmarshal(body, &c); err != nil {
		return Inference{}, errors.Wrap(err, errors.CodeParseFailure, "malformed chat completion", errors.CategoryPermanent)
	}
	if len(c.Choices) == 0 {
		return Inference{}, errors.Permanent(errors.CodeParseFailure, "chat completion contained no choices")
	}

	inf := Inference{
		TotalTimeMs: c.TotalTimeMs,
		Confidence:  c.Confidence,
		Usage:       Usage{PromptTokens: c.Usage.PromptTokens, CompletionTokens: c.Usage.CompletionTokens},
	}

	msg := c.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		for _, tc := range msg.ToolCalls {
			if tc.Type != "" && tc.Type != "function" {
				continue
			}
			inf.Calls = append(inf.Calls, tc.Function.toCall())
		}
		return inf, nil
	}

	calls, ok := parseTextCalls(msg.Content)
	if !ok {
		return Inference{}, errors.NewBuilder(errors.CodeParseFailure, "chat completion has no tool calls").
			Permanent().
			WithContext("content", truncate(msg.Content, 200)).
			Build()
	}
	inf.Calls = calls
	return inf, nil
}

// parseTextCalls extracts calls that a model wrote as plain text.
func parseTextCalls(content string) ([]protocol.Call, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false
	}

	if strings.Contains(content, "<tool_call>") {
		var calls []protocol.Call
		for _, block := range tagBlocks(content, "<tool_call>", "</tool_call>") {
			parsed, ok := parseJSONCalls(block)
			if !ok {
				return nil, false
			}
			calls = append(calls, parsed...)
		}
		return calls, len(calls) > 0
	}

	return parseJSONCalls(content)
}

func parseJSONCalls(content string) ([]protocol.Call, bool) {
	var list []wireCall
	if err := json.Unmarshal([]byte(content), &list); err == nil && len(list) > 0 {
		calls := make([]protocol.Call, 0, len(list))
		for _, w := range list {
			if w.Name == "" {
				return nil, false
			}
			calls = append(calls, w.toCall())
		}
		return calls, true
	}

	var single wireCall
	if err := json.Unmarshal([]byte(content), &single); err == nil && single.Name != "" {
		return []protocol.Call{single.toCall()}, true
	}

	return nil, false
}

// tagBlocks returns the trimmed bodies between openTag and closeTag. An
// unterminated final tag runs to the end of the text.
func tagBlocks(content, openTag, closeTag string) []string {
	var blocks []string
	for {
		start := strings.Index(content, openTag)
		if start < 0 {
			return blocks
		}
		content = content[start+len(openTag):]
		end := strings.Index(content, closeTag)
		if end < 0 {
			return append(blocks, strings.TrimSpace(content))
		}
		blocks = append(blocks, strings.TrimSpace(content[:end]))
		content = content[end+len(closeTag):]
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
