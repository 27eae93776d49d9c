package scoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func TestLoad_Builtin(t *testing.T) {
	assert.Contains(t, Builtin(), "assistant")

	s, err := Load("assistant")
	require.NoError(t, err)
	assert.Equal(t, "assistant", s.Name)
	require.Len(t, s.Cases, 30)

	counts := map[string]int{}
	for _, c := range s.Cases {
		counts[c.Difficulty]++
		req := c.Request()
		assert.Len(t, req.Tools, len(c.Tools), c.Name)
		assert.NotEmpty(t, c.ExpectedCalls, c.Name)
	}
	assert.Equal(t, map[string]int{Easy: 10, Medium: 10, Hard: 10}, counts)

	first := s.Cases[1]
	assert.Equal(t, "alarm_645am", first.Name)
	assert.Equal(t, 6, first.ExpectedCalls[0].Arguments["hour"])
}

func TestLoad_JSONFileWithInlineTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garage.json")
	body := `{
		"name": "garage",
		"tool_specs": [{
			"name": "open_garage",
			"description": "Open the garage door",
			"parameters": {"type": "object", "properties": {"door": {"type": "integer"}}, "required": ["door"]}
		}],
		"cases": [{
			"difficulty": "Easy",
			"messages": [{"role": "user", "content": "open door 2"}],
			"tools": ["open_garage", "get_weather"],
			"expected_calls": [{"name": "open_garage", "arguments": {"door": 2}}]
		}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Cases, 1)

	c := s.Cases[0]
	assert.Equal(t, "case_1", c.Name)
	assert.Equal(t, Easy, c.Difficulty)
	req := c.Request()
	require.Len(t, req.Tools, 2)
	assert.Equal(t, "open_garage", req.Tools[0].Name)

	predicted := []protocol.Call{{Name: "open_garage", Arguments: map[string]any{"door": 2}}}
	assert.InDelta(t, 1.0, F1(predicted, c.ExpectedCalls), 1e-9)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "cases: [\n"},
		{"unknown difficulty", "cases:\n  - difficulty: extreme\n    messages: [{role: user, content: hi}]\n"},
		{"no user message", "cases:\n  - difficulty: easy\n    messages: [{role: system, content: hi}]\n"},
		{"unknown tool", "cases:\n  - difficulty: easy\n    messages: [{role: user, content: hi}]\n    tools: [launch_rocket]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body), ".yaml")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryUser, apperrors.GetCategory(err))
}

type scripted map[string]*protocol.HybridResult

func (s scripted) Generate(_ context.Context, req protocol.Request) (*protocol.HybridResult, error) {
	text := req.Messages[protocol.LastUser(req.Messages)].Content
	if res, ok := s[text]; ok {
		return res, nil
	}
	return nil, errors.New("unavailable")
}

func TestRunner_Run(t *testing.T) {
	suite, err := Parse([]byte(`
name: mini
cases:
  - name: weather
    difficulty: easy
    messages: [{role: user, content: weather in Paris}]
    tools: [get_weather]
    expected_calls: [{name: get_weather, arguments: {location: Paris}}]
  - name: timer
    difficulty: hard
    messages: [{role: user, content: five minute timer}]
    tools: [set_timer]
    expected_calls: [{name: set_timer, arguments: {minutes: 5}}]
`), ".yaml")
	require.NoError(t, err)

	gen := scripted{
		"weather in Paris": {
			FunctionCalls: []protocol.Call{{Name: "get_weather", Arguments: map[string]any{"location": "paris"}}},
			TotalTimeMs:   100,
			Source:        protocol.SourceOnDevice,
		},
	}

	var progress []int
	r := NewRunner(gen, zerolog.Nop())
	r.Progress = func(done, total int, _ CaseResult) {
		assert.Equal(t, 2, total)
		progress = append(progress, done)
	}

	rep, err := r.Run(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progress)
	require.Len(t, rep.Results, 2)

	assert.InDelta(t, 1.0, rep.Results[0].F1, 1e-9)
	assert.True(t, rep.Results[0].OnDevice())
	assert.Equal(t, "unavailable", rep.Results[1].Error)
	assert.InDelta(t, 0.0, rep.Results[1].F1, 1e-9)

	easy := 0.60 + 0.15*0.8 + 0.25
	hard := 0.15 // the failed case keeps its time score
	assert.InDelta(t, 100*(0.20*easy+0.50*hard), rep.Score, 1e-9)

	out := rep.Render()
	assert.Contains(t, out, "mini")
	assert.Contains(t, out, "weather")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "TOTAL SCORE")
	assert.True(t, strings.Contains(out, "overall"))
}

func TestRunner_ContextCanceled(t *testing.T) {
	s, err := Load("assistant")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRunner(scripted{}, zerolog.Nop()).Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
