// Package consensus canonicalizes call sets and picks a majority answer from
// repeated inference samples.
package consensus

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Key is an order-independent fingerprint of a call set. Two call sets have
// the same key iff they hold the same multiset of (name, arguments).
type Key string

type canonicalCall struct {
	Name string      `json:"n"`
	Args [][2]string `json:"a"`
}

// Fingerprint computes the key of calls. Argument values are compared by
// their string form.
func Fingerprint(calls []protocol.Call) Key {
	canon := make([]canonicalCall, len(calls))
	for i, c := range calls {
		args := make([][2]string, 0, len(c.Arguments))
		for k, v := range c.Arguments {
			args = append(args, [2]string{k, schemas.Stringify(v)})
		}
		sort.Slice(args, func(a, b int) bool {
			if args[a][0] != args[b][0] {
				return args[a][0] < args[b][0]
			}
			return args[a][1] < args[b][1]
		})
		canon[i] = canonicalCall{Name: c.Name, Args: args}
	}

	sort.Slice(canon, func(a, b int) bool {
		return less(canon[a], canon[b])
	})

	data, _ := json.Marshal(canon)
	return Key(data)
}

func less(a, b canonicalCall) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	for i := 0; i < len(a.Args) && i < len(b.Args); i++ {
		if c := strings.Compare(a.Args[i][0], b.Args[i][0]); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Args[i][1], b.Args[i][1]); c != 0 {
			return c < 0
		}
	}
	return len(a.Args) < len(b.Args)
}

// Sample is one validated local inference run.
type Sample struct {
	Calls      []protocol.Call
	Confidence float64
	LatencyMs  float64
}

// Result is the accepted answer of a resolution.
type Result struct {
	Calls      []protocol.Call
	Confidence float64
	LatencyMs  float64
}

// Threshold is the number of agreeing samples needed when attempted samples
// were drawn: a strict majority, and never fewer than two.
func Threshold(attempted int) int {
	return max(2, attempted/2+1)
}

// Pick groups valid samples by fingerprint and returns the most confident
// member of the largest group, if that group reaches Threshold(attempted).
// Ties between groups go to the group seen first; ties in confidence go to
// the earlier sample. LatencyMs of the result is left to the caller.
func Pick(valid []Sample, attempted int) (Result, bool) {
	if len(valid) == 0 {
		return Result{}, false
	}

	keys := make([]Key, len(valid))
	counts := make(map[Key]int, len(valid))
	for i, s := range valid {
		keys[i] = Fingerprint(s.Calls)
		counts[keys[i]]++
	}

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}

	if counts[best] < Threshold(attempted) {
		return Result{}, false
	}

	winner := -1
	for i, s := range valid {
		if keys[i] != best {
			continue
		}
		if winner < 0 || s.Confidence > valid[winner].Confidence {
			winner = i
		}
	}

	return Result{
		Calls:      valid[winner].Calls,
		Confidence: valid[winner].Confidence,
	}, true
}
