package schemas

import (
	"fmt"
	"math"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Numeric bounds for integer and number arguments, inclusive.
const (
	MinNumeric = -1000
	MaxNumeric = 1_000_000
)

// Validate checks calls against specs and coerces argument values to their
// declared types. It fails closed: one bad call invalidates the batch, and an
// empty batch is never valid. On failure the input calls are returned as is.
func Validate(calls []protocol.Call, specs []protocol.ToolSpec) ([]protocol.Call, bool) {
	corrected, err := Check(calls, specs)
	return corrected, err == nil
}

// Check is Validate with a diagnostic: the returned error is a
// SCHEMA_VIOLATION AppError describing the first problem found.
func Check(calls []protocol.Call, specs []protocol.ToolSpec) ([]protocol.Call, error) {
	if len(calls) == 0 {
		return calls, errors.Permanent(errors.CodeSchemaViolation, "no tool calls")
	}

	byName := make(map[string]protocol.ToolSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	corrected := make([]protocol.Call, 0, len(calls))
	for i, call := range calls {
		spec, ok := byName[call.Name]
		if !ok {
			return calls, violation(i, call.Name, fmt.Sprintf("unknown tool %q", call.Name))
		}

		for _, field := range spec.Parameters.Required {
			if _, present := call.Arguments[field]; !present {
				return calls, violation(i, call.Name, fmt.Sprintf("missing required argument %q", field))
			}
		}

		args := make(map[string]any, len(call.Arguments))
		for k, v := range call.Arguments {
			prop, declared := spec.Parameters.Properties[k]
			if !declared {
				args[k] = v
				continue
			}
			pt := ParseParamType(prop.Type)
			coerced := pt.Coerce(v)
			if pt.Numeric() {
				if f, isNum := toFloat(coerced); isNum && (math.IsNaN(f) || f < MinNumeric || f > MaxNumeric) {
					return calls, violation(i, call.Name, fmt.Sprintf("argument %q out of range: %v", k, coerced))
				}
			}
			args[k] = coerced
		}
		corrected = append(corrected, protocol.Call{Name: call.Name, Arguments: args})
	}

	return corrected, nil
}

func violation(index int, tool, msg string) error {
	return errors.NewBuilder(errors.CodeSchemaViolation, msg).
		Permanent().
		WithContext("call", index).
		WithContext("tool", tool).
		Build()
}
