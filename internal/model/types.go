package model

import "github.com/flynn-ai/hybridcall/pkg/protocol"

// Inference is the outcome of one model run.
type Inference struct {
	Calls       []protocol.Call `json:"function_calls"`
	TotalTimeMs float64         `json:"total_time_ms"`
	Confidence  float64         `json:"confidence"`
	Usage       Usage           `json:"usage"`
}

// Usage counts tokens spent by a run, when the model reports them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// ModelStatus represents the status of a model.
type ModelStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Local     bool   `json:"local"`
	Endpoint  string `json:"endpoint,omitempty"`
	Breaker   string `json:"breaker,omitempty"`
	InFlight  int64  `json:"in_flight,omitempty"`
	Error     string `json:"error,omitempty"`
}
