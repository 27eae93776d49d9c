package protocol

// Call is a single tool invocation.
type Call struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments" yaml:"arguments"`
}

// Clone returns a copy of the call with its own argument map.
func (c Call) Clone() Call {
	args := make(map[string]any, len(c.Arguments))
	for k, v := range c.Arguments {
		args[k] = v
	}
	return Call{Name: c.Name, Arguments: args}
}

// ToolSpec describes a callable tool. Specs are supplied per request and
// treated as immutable.
type ToolSpec struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Parameters  Parameters `json:"parameters" yaml:"parameters"`
}

// Parameters is the JSON-schema style parameter block of a tool.
type Parameters struct {
	Type       string              `json:"type" yaml:"type"` // always "object"
	Properties map[string]Property `json:"properties" yaml:"properties"`
	Required   []string            `json:"required,omitempty" yaml:"required,omitempty"`
}

// Property describes one parameter.
type Property struct {
	Type        string `json:"type" yaml:"type"` // integer, number, boolean, string, array
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// FunctionFormat renders the spec as an OpenAI-style function definition.
func (t ToolSpec) FunctionFormat() map[string]any {
	props := make(map[string]any, len(t.Parameters.Properties))
	for name, p := range t.Parameters.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	params := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(t.Parameters.Required) > 0 {
		params["required"] = t.Parameters.Required
	}
	return params
}
