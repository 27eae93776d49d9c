package scoring

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

//go:embed suites/*.yaml
var builtin embed.FS

// Suite is a named list of benchmark cases.
type Suite struct {
	Name  string `json:"name" yaml:"name"`
	Cases []Case `json:"cases" yaml:"cases"`

	// ToolSpecs declares tools inline, in addition to the stock catalog.
	ToolSpecs []protocol.ToolSpec `json:"tool_specs,omitempty" yaml:"tool_specs,omitempty"`
}

// Case is one request with the calls it should produce.
type Case struct {
	Name          string             `json:"name" yaml:"name"`
	Difficulty    string             `json:"difficulty" yaml:"difficulty"`
	Messages      []protocol.Message `json:"messages" yaml:"messages"`
	Tools         []string           `json:"tools" yaml:"tools"`
	ExpectedCalls []protocol.Call    `json:"expected_calls" yaml:"expected_calls"`

	specs []protocol.ToolSpec
}

// Request returns the request the case sends.
func (c Case) Request() protocol.Request {
	return protocol.Request{Messages: c.Messages, Tools: c.specs}
}

// Builtin returns the names of the embedded suites.
func Builtin() []string {
	entries, _ := builtin.ReadDir("suites")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

// Load reads a suite from a YAML or JSON file, or from the embedded suites
// when path names one of Builtin().
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !strings.ContainsRune(path, filepath.Separator) {
		if embedded, eerr := builtin.ReadFile("suites/" + strings.TrimSuffix(path, ".yaml") + ".yaml"); eerr == nil {
			return Parse(embedded, ".yaml")
		}
	}
	if err != nil {
		return nil, errors.NewBuilder(errors.CodeInvalidInput, "read suite").
			User().
			Wrap(err).
			WithContext("path", path).
			WithSuggestion(fmt.Sprintf("built-in suites: %s", strings.Join(Builtin(), ", "))).
			Build()
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a suite. ext selects JSON for ".json" and YAML otherwise.
// Tool names are resolved against inline specs first, then the stock
// assistant catalog.
func Parse(data []byte, ext string) (*Suite, error) {
	var s Suite
	var err error
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, suiteErr("decode suite", err).Build()
	}

	registry := schemas.AssistantTools()
	for _, spec := range s.ToolSpecs {
		registry.Register(spec)
	}

	for i := range s.Cases {
		c := &s.Cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case_%d", i+1)
		}
		c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))
		if _, ok := weights[c.Difficulty]; !ok {
			return nil, suiteErr("unknown difficulty", nil).
				WithContext("case", c.Name).
				WithContext("difficulty", c.Difficulty).
				Build()
		}
		if protocol.LastUser(c.Messages) < 0 {
			return nil, suiteErr("case has no user message", nil).WithContext("case", c.Name).Build()
		}

		c.specs = make([]protocol.ToolSpec, 0, len(c.Tools))
		for _, name := range c.Tools {
			spec, ok := registry.Get(name)
			if !ok {
				return nil, suiteErr("unknown tool", nil).
					WithContext("case", c.Name).
					WithContext("tool", name).
					Build()
			}
			c.specs = append(c.specs, spec)
		}
	}
	return &s, nil
}

func suiteErr(msg string, err error) *errors.Builder {
	return errors.NewBuilder(errors.CodeInvalidInput, msg).User().Wrap(err)
}
