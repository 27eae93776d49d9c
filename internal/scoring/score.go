// Package scoring measures resolution quality over benchmark suites: call
// F1 against expected calls, latency and how much stayed on-device.
package scoring

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Difficulty levels and their share of the total score.
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

var weights = map[string]float64{Easy: 0.20, Medium: 0.30, Hard: 0.50}

// Difficulties lists the levels in report order.
var Difficulties = []string{Easy, Medium, Hard}

// TimeBaselineMs is the average latency at which the time score reaches 0.
const TimeBaselineMs = 500.0

// Weight returns the share of the total score a difficulty carries.
func Weight(difficulty string) float64 {
	return weights[difficulty]
}

// CallMatches reports whether predicted has expected's name and every
// expected argument. Strings compare trimmed and case-insensitively, numbers
// by value. Extra predicted arguments are ignored.
func CallMatches(predicted, expected protocol.Call) bool {
	if predicted.Name != expected.Name {
		return false
	}
	for k, want := range expected.Arguments {
		got, ok := predicted.Arguments[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

func normalize(v any) any {
	switch x := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(x))
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return v
	}
}

// F1 scores predicted against expected. Each expected call is matched to at
// most one unused predicted call, first match wins. Two empty sets score 1.
func F1(predicted, expected []protocol.Call) float64 {
	if len(predicted) == 0 && len(expected) == 0 {
		return 1
	}
	if len(predicted) == 0 || len(expected) == 0 {
		return 0
	}

	used := make([]bool, len(predicted))
	matched := 0
	for _, exp := range expected {
		for i, pred := range predicted {
			if !used[i] && CallMatches(pred, exp) {
				used[i] = true
				matched++
				break
			}
		}
	}

	precision := float64(matched) / float64(len(predicted))
	recall := float64(matched) / float64(len(expected))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// CaseResult is the outcome of one benchmark case.
type CaseResult struct {
	Name        string          `json:"name"`
	Difficulty  string          `json:"difficulty"`
	TotalTimeMs float64         `json:"total_time_ms"`
	F1          float64         `json:"f1"`
	Source      protocol.Source `json:"source"`
	Predicted   []protocol.Call `json:"predicted"`
	Expected    []protocol.Call `json:"expected"`
	Error       string          `json:"error,omitempty"`
}

// OnDevice reports whether the case was answered locally.
func (r CaseResult) OnDevice() bool {
	return r.Source == protocol.SourceOnDevice
}

// LevelSummary aggregates the results of one difficulty.
type LevelSummary struct {
	Difficulty    string  `json:"difficulty"`
	Cases         int     `json:"cases"`
	AvgF1         float64 `json:"avg_f1"`
	AvgTimeMs     float64 `json:"avg_time_ms"`
	OnDevice      int     `json:"on_device"`
	OnDeviceRatio float64 `json:"on_device_ratio"`
	TimeScore     float64 `json:"time_score"`
	Score         float64 `json:"score"`
}

// Summarize aggregates results per difficulty, in Difficulties order, and
// a final "overall" entry. Levels without results are omitted.
func Summarize(results []CaseResult) []LevelSummary {
	var out []LevelSummary
	for _, d := range Difficulties {
		if s, ok := summarize(d, results, func(r CaseResult) bool { return r.Difficulty == d }); ok {
			out = append(out, s)
		}
	}
	if s, ok := summarize("overall", results, func(CaseResult) bool { return true }); ok {
		out = append(out, s)
	}
	return out
}

func summarize(label string, results []CaseResult, keep func(CaseResult) bool) (LevelSummary, bool) {
	s := LevelSummary{Difficulty: label}
	var f1, ms float64
	for _, r := range results {
		if !keep(r) {
			continue
		}
		s.Cases++
		f1 += r.F1
		ms += r.TotalTimeMs
		if r.OnDevice() {
			s.OnDevice++
		}
	}
	if s.Cases == 0 {
		return s, false
	}

	n := float64(s.Cases)
	s.AvgF1 = f1 / n
	s.AvgTimeMs = ms / n
	s.OnDeviceRatio = float64(s.OnDevice) / n
	s.TimeScore = max(0, 1-s.AvgTimeMs/TimeBaselineMs)
	s.Score = 0.60*s.AvgF1 + 0.15*s.TimeScore + 0.25*s.OnDeviceRatio
	return s, true
}

// TotalScore is the difficulty-weighted score in percent, 0 to 100.
func TotalScore(results []CaseResult) float64 {
	total := 0.0
	for _, s := range Summarize(results) {
		total += Weight(s.Difficulty) * s.Score
	}
	return total * 100
}
