// Package protocol provides shared data structures used across hybridcall components.
// These types can be imported by external tools and extensions.
package protocol

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation handed to the resolver.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Request is a resolution request: the conversation plus the tools the
// assistant may call.
type Request struct {
	Messages []Message  `json:"messages" yaml:"messages"`
	Tools    []ToolSpec `json:"tools" yaml:"tools"`
}

// LastUser returns the index of the latest user-authored message, or -1.
func LastUser(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// WithoutUser returns the non-user messages in their original order.
func WithoutUser(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != RoleUser {
			out = append(out, m)
		}
	}
	return out
}

// Source tags where a HybridResult came from.
type Source string

const (
	SourceOnDevice Source = "on-device"
	SourceCloud    Source = "cloud (fallback)"
)

// HybridResult is the final answer for one top-level request.
type HybridResult struct {
	FunctionCalls []Call   `json:"function_calls" yaml:"function_calls"`
	TotalTimeMs   float64  `json:"total_time_ms" yaml:"total_time_ms"`
	Source        Source   `json:"source" yaml:"source"`
	Confidence    *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// OnDevice reports whether the result was produced without the cloud.
func (r *HybridResult) OnDevice() bool {
	return r != nil && r.Source == SourceOnDevice
}
