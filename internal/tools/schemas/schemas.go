// Package schemas builds tool specifications and validates candidate tool
// calls against them.
package schemas

import (
	"encoding/json"
	"sort"

	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// SchemaBuilder provides a fluent interface for building tool specs.
type SchemaBuilder struct {
	spec protocol.ToolSpec
}

// NewSchema creates a new schema builder with the given name and description.
func NewSchema(name, description string) *SchemaBuilder {
	return &SchemaBuilder{
		spec: protocol.ToolSpec{
			Name:        name,
			Description: description,
			Parameters: protocol.Parameters{
				Type:       "object",
				Properties: make(map[string]protocol.Property),
			},
		},
	}
}

// AddParam adds a parameter to the schema.
func (b *SchemaBuilder) AddParam(name string, paramType ParamType, description string, required bool) *SchemaBuilder {
	b.spec.Parameters.Properties[name] = protocol.Property{
		Type:        paramType.String(),
		Description: description,
	}
	if required {
		b.spec.Parameters.Required = append(b.spec.Parameters.Required, name)
	}
	return b
}

// Build returns the constructed spec.
func (b *SchemaBuilder) Build() protocol.ToolSpec {
	return b.spec
}

// Registry holds tool specs by name, remembering registration order.
type Registry struct {
	specs map[string]protocol.ToolSpec
	order []string
}

// NewRegistry creates a new empty schema registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]protocol.ToolSpec)}
}

// Register adds a spec to the registry, replacing any spec of the same name.
func (r *Registry) Register(spec protocol.ToolSpec) {
	if _, exists := r.specs[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.specs[spec.Name] = spec
}

// Get retrieves a spec by name.
func (r *Registry) Get(name string) (protocol.ToolSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Specs returns the specs in registration order.
func (r *Registry) Specs() []protocol.ToolSpec {
	out := make([]protocol.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Select returns the specs for names, in the order given. Unknown names are skipped.
func (r *Registry) Select(names ...string) []protocol.ToolSpec {
	out := make([]protocol.ToolSpec, 0, len(names))
	for _, name := range names {
		if s, ok := r.specs[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ToOpenAIFormat converts specs to OpenAI function calling format.
func ToOpenAIFormat(specs []protocol.ToolSpec) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		result = append(result, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        spec.Name,
				"description": spec.Description,
				"parameters":  spec.FunctionFormat(),
			},
		})
	}
	return result
}

// ToJSON returns the registry as JSON for debugging.
func (r *Registry) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r.Specs(), "", "  ")
}

// Merge merges another registry into this one. Existing names win.
func (r *Registry) Merge(other *Registry) {
	for _, name := range other.order {
		if _, exists := r.specs[name]; !exists {
			r.Register(other.specs[name])
		}
	}
}
