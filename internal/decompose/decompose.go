// Package decompose splits compound instructions into atomic sub-requests.
//
// The splitting is a best-effort heuristic over commas and the connective
// "and". It is not a natural-language parser; anything that can segment text
// may stand in for it through the Segmenter interface.
package decompose

import (
	"regexp"
	"strings"
)

// Segmenter splits a request into ordered clauses. A single-element result
// means the text could not usefully be split.
type Segmenter interface {
	Segment(text string) []string
}

// SegmenterFunc adapts a function to the Segmenter interface.
type SegmenterFunc func(text string) []string

// Segment calls f.
func (f SegmenterFunc) Segment(text string) []string { return f(text) }

var (
	commaSplit   = regexp.MustCompile(`,\s+and\s+|,\s+`)
	leadingAnd   = regexp.MustCompile(`(?i)^and\s+`)
	bareAndSplit = regexp.MustCompile(`(?i)\s+and\s+`)
)

// DefaultVerbs are the action verbs a clause must start with before a bare
// " and " is treated as a clause boundary.
var DefaultVerbs = []string{
	"set", "send", "play", "get", "find", "search", "look", "check",
	"create", "make", "add", "call", "text", "remind", "show", "turn",
	"open", "close", "start", "stop", "enable", "disable", "run",
	"schedule", "book", "cancel", "delete", "update", "read", "wake",
	"fetch", "list", "tell", "ask", "go",
}

// Heuristic is the comma/connective segmenter.
type Heuristic struct {
	verbs map[string]struct{}

	// MinWords is the word count below which a clause is dropped.
	MinWords int
	// MinVerbClauseWords is the word count every clause of a bare "and"
	// split must reach.
	MinVerbClauseWords int
}

// NewHeuristic returns a segmenter using verbs, or DefaultVerbs when none are given.
func NewHeuristic(verbs ...string) *Heuristic {
	if len(verbs) == 0 {
		verbs = DefaultVerbs
	}
	h := &Heuristic{
		verbs:              make(map[string]struct{}, len(verbs)),
		MinWords:           2,
		MinVerbClauseWords: 3,
	}
	for _, v := range verbs {
		h.verbs[strings.ToLower(v)] = struct{}{}
	}
	return h
}

// Segment implements Segmenter.
func (h *Heuristic) Segment(text string) []string {
	var parts []string
	for _, p := range commaSplit.Split(text, -1) {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(leadingAnd.ReplaceAllString(p, "")))
	}

	if len(parts) == 1 {
		if candidates := h.verbClauses(text); candidates != nil {
			parts = candidates
		}
	}

	kept := parts[:0]
	for _, p := range parts {
		if len(strings.Fields(p)) >= h.MinWords {
			kept = append(kept, p)
		}
	}

	if len(kept) < 2 {
		return []string{text}
	}
	return kept
}

// verbClauses splits on a bare "and" when every side reads like a command.
func (h *Heuristic) verbClauses(text string) []string {
	raw := bareAndSplit.Split(text, -1)
	if len(raw) < 2 {
		return nil
	}
	out := make([]string, len(raw))
	for i, p := range raw {
		words := strings.Fields(p)
		if len(words) < h.MinVerbClauseWords || !h.isVerb(words[0]) {
			return nil
		}
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func (h *Heuristic) isVerb(word string) bool {
	w := strings.TrimRight(strings.ToLower(word), "'s")
	_, ok := h.verbs[w]
	return ok
}
