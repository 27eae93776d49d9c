// Package prompt builds the system prompt sent to the local model.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// DefaultIdentity is the system prompt used when none is configured.
const DefaultIdentity = "You are a helpful assistant that can use tools."

type Mode string

const (
	ModeFull    Mode = "full"
	ModeMinimal Mode = "minimal"
)

// Builder assembles the system message prepended to every local inference.
type Builder struct {
	Mode     Mode
	Identity string
	Timezone string

	now func() time.Time
}

func NewBuilder(mode Mode, identity string) *Builder {
	if identity == "" {
		identity = DefaultIdentity
	}
	if mode == "" {
		mode = ModeMinimal
	}
	return &Builder{
		Mode:     mode,
		Identity: identity,
		now:      time.Now,
	}
}

// BuildSystemPrompt renders the system prompt. Minimal mode is the identity
// line alone; small function-calling models do best with nothing else.
func (b *Builder) BuildSystemPrompt(tools []protocol.ToolSpec) string {
	if b.Mode != ModeFull {
		return b.Identity
	}

	sections := []string{b.Identity}
	sections = append(sections, "Tooling:\n"+b.toolingSection(tools))
	sections = append(sections, "Current Date & Time:\n"+b.timeLine())
	return strings.Join(sections, "\n\n")
}

// Messages returns msgs with the system prompt prepended. msgs is not modified.
func (b *Builder) Messages(msgs []protocol.Message, tools []protocol.ToolSpec) []protocol.Message {
	out := make([]protocol.Message, 0, len(msgs)+1)
	out = append(out, protocol.Message{Role: protocol.RoleSystem, Content: b.BuildSystemPrompt(tools)})
	return append(out, msgs...)
}

func (b *Builder) toolingSection(tools []protocol.ToolSpec) string {
	if len(tools) == 0 {
		return "None."
	}
	var bld strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&bld, "- %s: %s\n", t.Name, t.Description)
	}
	return strings.TrimSpace(bld.String())
}

func (b *Builder) timeLine() string {
	now := b.now()
	if b.Timezone != "" {
		if loc, err := time.LoadLocation(b.Timezone); err == nil {
			now = now.In(loc)
		}
	}
	return now.Format("Monday, 2006-01-02 15:04 MST")
}
