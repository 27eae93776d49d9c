package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func weather(city string) protocol.Call {
	return protocol.Call{Name: "get_weather", Arguments: map[string]any{"location": city}}
}

func alarm(h, m int) protocol.Call {
	return protocol.Call{Name: "set_alarm", Arguments: map[string]any{"hour": h, "minute": m}}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := []protocol.Call{weather("Paris"), alarm(6, 0), weather("Oslo")}
	b := []protocol.Call{weather("Oslo"), weather("Paris"), alarm(6, 0)}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_ArgumentValuesCompareByString(t *testing.T) {
	a := []protocol.Call{{Name: "set_timer", Arguments: map[string]any{"minutes": 5}}}
	b := []protocol.Call{{Name: "set_timer", Arguments: map[string]any{"minutes": float64(5)}}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_Distinguishes(t *testing.T) {
	assert.NotEqual(t, Fingerprint([]protocol.Call{weather("Paris")}), Fingerprint([]protocol.Call{weather("Lyon")}))
	assert.NotEqual(t,
		Fingerprint([]protocol.Call{weather("Paris")}),
		Fingerprint([]protocol.Call{weather("Paris"), weather("Paris")}),
	)
	assert.NotEqual(t, Fingerprint([]protocol.Call{alarm(6, 0)}), Fingerprint([]protocol.Call{alarm(0, 6)}))
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 2, Threshold(1))
	assert.Equal(t, 2, Threshold(3))
	assert.Equal(t, 3, Threshold(4))
	assert.Equal(t, 3, Threshold(5))
}

func TestPick_TwoOfThreeTakesMostConfident(t *testing.T) {
	samples := []Sample{
		{Calls: []protocol.Call{weather("Paris")}, Confidence: 0.6},
		{Calls: []protocol.Call{weather("Lyon")}, Confidence: 0.95},
		{Calls: []protocol.Call{weather("Paris")}, Confidence: 0.8},
	}
	got, ok := Pick(samples, 3)
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, "Paris", got.Calls[0].Arguments["location"])
}

func TestPick_ConfidenceTieKeepsFirst(t *testing.T) {
	first := []protocol.Call{{Name: "get_weather", Arguments: map[string]any{"location": "Paris", "n": 1}}}
	second := []protocol.Call{{Name: "get_weather", Arguments: map[string]any{"n": 1, "location": "Paris"}}}
	got, ok := Pick([]Sample{{Calls: first, Confidence: 0.5}, {Calls: second, Confidence: 0.5}}, 3)
	require.True(t, ok)
	assert.Equal(t, first, got.Calls)
}

func TestPick_NoMajority(t *testing.T) {
	samples := []Sample{
		{Calls: []protocol.Call{weather("Paris")}, Confidence: 0.9},
		{Calls: []protocol.Call{weather("Lyon")}, Confidence: 0.9},
		{Calls: []protocol.Call{weather("Nice")}, Confidence: 0.9},
	}
	_, ok := Pick(samples, 3)
	assert.False(t, ok)
}

func TestPick_SingleValidSampleIsNotEnough(t *testing.T) {
	_, ok := Pick([]Sample{{Calls: []protocol.Call{weather("Paris")}, Confidence: 0.9}}, 3)
	assert.False(t, ok)

	_, ok = Pick(nil, 3)
	assert.False(t, ok)
}
