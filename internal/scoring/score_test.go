package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func call(name string, args map[string]any) protocol.Call {
	return protocol.Call{Name: name, Arguments: args}
}

func TestCallMatches(t *testing.T) {
	tests := []struct {
		name      string
		predicted protocol.Call
		expected  protocol.Call
		want      bool
	}{
		{"exact", call("get_weather", map[string]any{"location": "Paris"}), call("get_weather", map[string]any{"location": "Paris"}), true},
		{"case and space", call("get_weather", map[string]any{"location": "  paris "}), call("get_weather", map[string]any{"location": "Paris"}), true},
		{"int vs float", call("set_alarm", map[string]any{"hour": 7.0, "minute": 0}), call("set_alarm", map[string]any{"hour": 7, "minute": 0}), true},
		{"json number", call("set_timer", map[string]any{"minutes": 5}), call("set_timer", map[string]any{"minutes": json.Number("5")}), true},
		{"extra args ignored", call("play_music", map[string]any{"song": "jazz", "shuffle": true}), call("play_music", map[string]any{"song": "jazz"}), true},
		{"wrong name", call("set_timer", map[string]any{"minutes": 5}), call("set_alarm", map[string]any{"minutes": 5}), false},
		{"missing arg", call("set_alarm", map[string]any{"hour": 7}), call("set_alarm", map[string]any{"hour": 7, "minute": 0}), false},
		{"wrong value", call("set_alarm", map[string]any{"hour": 8, "minute": 0}), call("set_alarm", map[string]any{"hour": 7, "minute": 0}), false},
		{"string vs number", call("set_timer", map[string]any{"minutes": "5"}), call("set_timer", map[string]any{"minutes": 5}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CallMatches(tt.predicted, tt.expected))
		})
	}
}

func TestF1(t *testing.T) {
	weather := call("get_weather", map[string]any{"location": "Paris"})
	timer := call("set_timer", map[string]any{"minutes": 5})
	jazz := call("play_music", map[string]any{"song": "jazz"})

	assert.InDelta(t, 1.0, F1(nil, nil), 1e-9)
	assert.InDelta(t, 0.0, F1(nil, []protocol.Call{weather}), 1e-9)
	assert.InDelta(t, 0.0, F1([]protocol.Call{weather}, nil), 1e-9)
	assert.InDelta(t, 1.0, F1([]protocol.Call{timer, weather}, []protocol.Call{weather, timer}), 1e-9)
	assert.InDelta(t, 0.0, F1([]protocol.Call{jazz}, []protocol.Call{weather}), 1e-9)

	// precision 1/2, recall 1/1
	assert.InDelta(t, 2.0/3.0, F1([]protocol.Call{weather, jazz}, []protocol.Call{weather}), 1e-9)

	// one prediction cannot satisfy two identical expectations
	assert.InDelta(t, 2.0/3.0, F1([]protocol.Call{weather}, []protocol.Call{weather, weather}), 1e-9)
}

func TestTotalScore(t *testing.T) {
	results := []CaseResult{
		{Difficulty: Easy, F1: 1, TotalTimeMs: 0, Source: protocol.SourceOnDevice},
		{Difficulty: Medium, F1: 1, TotalTimeMs: 250, Source: protocol.SourceCloud},
		{Difficulty: Hard, F1: 0.5, TotalTimeMs: 1000, Source: protocol.SourceCloud},
		{Difficulty: Hard, F1: 0.5, TotalTimeMs: 1000, Source: protocol.SourceOnDevice},
	}

	easy := 0.60*1 + 0.15*1 + 0.25*1
	medium := 0.60*1 + 0.15*0.5 + 0.25*0
	hard := 0.60*0.5 + 0.15*0 + 0.25*0.5
	want := (0.20*easy + 0.30*medium + 0.50*hard) * 100

	assert.InDelta(t, want, TotalScore(results), 1e-9)
	assert.InDelta(t, 0.0, TotalScore(nil), 1e-9)
}

func TestTotalScore_MissingLevelsContributeNothing(t *testing.T) {
	results := []CaseResult{{Difficulty: Easy, F1: 1, Source: protocol.SourceOnDevice}}
	assert.InDelta(t, 20.0, TotalScore(results), 1e-9)
}

func TestSummarize(t *testing.T) {
	results := []CaseResult{
		{Difficulty: Hard, F1: 1, TotalTimeMs: 100, Source: protocol.SourceOnDevice},
		{Difficulty: Easy, F1: 0, TotalTimeMs: 300, Source: protocol.SourceCloud},
	}

	levels := Summarize(results)
	assert.Len(t, levels, 3)
	assert.Equal(t, Easy, levels[0].Difficulty)
	assert.Equal(t, Hard, levels[1].Difficulty)
	assert.Equal(t, "overall", levels[2].Difficulty)
	assert.Equal(t, 2, levels[2].Cases)
	assert.InDelta(t, 200, levels[2].AvgTimeMs, 1e-9)
	assert.InDelta(t, 0.5, levels[2].OnDeviceRatio, 1e-9)
}
