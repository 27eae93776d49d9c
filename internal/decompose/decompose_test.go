package decompose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic_Segment(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comma and",
			in:   "Set an alarm for 6:00 AM, and check the weather in Paris",
			want: []string{"Set an alarm for 6:00 AM", "check the weather in Paris"},
		},
		{
			name: "single intent",
			in:   "Play some jazz",
			want: []string{"Play some jazz"},
		},
		{
			name: "three clauses",
			in:   "Text Alice hello, set a timer for 5 minutes, and play jazz music",
			want: []string{"Text Alice hello", "set a timer for 5 minutes", "play jazz music"},
		},
		{
			name: "capitalized leading and",
			in:   "Check the weather in Oslo, And play some jazz",
			want: []string{"Check the weather in Oslo", "play some jazz"},
		},
		{
			name: "bare and between commands",
			in:   "Set an alarm for 7 and check the weather in Tokyo",
			want: []string{"Set an alarm for 7", "check the weather in Tokyo"},
		},
		{
			name: "bare and with inflected verbs",
			in:   "Sets the alarm at 6 AND checks the weather today",
			want: []string{"Sets the alarm at 6", "checks the weather today"},
		},
		{
			name: "bare and inside a title",
			in:   "Play tom and jerry",
			want: []string{"Play tom and jerry"},
		},
		{
			name: "bare and without a verb",
			in:   "Find the salt and pepper shakers",
			want: []string{"Find the salt and pepper shakers"},
		},
		{
			name: "short clause dropped",
			in:   "Send a message to Bob, thanks",
			want: []string{"Send a message to Bob, thanks"},
		},
		{
			name: "empty",
			in:   "",
			want: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Segment(tt.in))
		})
	}
}

func TestHeuristic_CustomVerbs(t *testing.T) {
	h := NewHeuristic("brew")
	assert.Equal(t,
		[]string{"brew some coffee now", "brew some tea later"},
		h.Segment("brew some coffee now and brew some tea later"),
	)
	assert.Len(t, h.Segment("set an alarm now and check the weather"), 1)
}

func TestSegmenterFunc(t *testing.T) {
	var s Segmenter = SegmenterFunc(func(text string) []string {
		return strings.Split(text, ";")
	})
	assert.Equal(t, []string{"a", "b"}, s.Segment("a;b"))
}
