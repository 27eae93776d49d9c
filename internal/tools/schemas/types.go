package schemas

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ParamType is the declared primitive type of a tool parameter.
type ParamType int

const (
	// TypeOther covers declared types outside the supported set. Values of
	// such parameters are passed through untouched.
	TypeOther ParamType = iota
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeString
	TypeArray
)

// ParseParamType maps a schema type name to its ParamType.
func ParseParamType(name string) ParamType {
	switch strings.ToLower(name) {
	case "integer":
		return TypeInteger
	case "number":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "string":
		return TypeString
	case "array":
		return TypeArray
	default:
		return TypeOther
	}
}

// String returns the schema type name.
func (t ParamType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	default:
		return "object"
	}
}

// Numeric reports whether values of this type are range checked.
func (t ParamType) Numeric() bool {
	return t == TypeInteger || t == TypeNumber
}

// Coerce converts v to the type. It never fails: a value that cannot be
// converted is returned unchanged.
func (t ParamType) Coerce(v any) any {
	switch t {
	case TypeInteger:
		return coerceInteger(v)
	case TypeNumber:
		return coerceNumber(v)
	case TypeBoolean:
		return coerceBoolean(v)
	case TypeString:
		return coerceString(v)
	case TypeArray:
		return coerceArray(v)
	default:
		return v
	}
}

func coerceInteger(v any) any {
	switch x := v.(type) {
	case bool:
		return v
	case int:
		return x
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return int(reflect.ValueOf(x).Convert(reflect.TypeOf(0)).Int())
	case float32:
		return integralOr(float64(x), v)
	case float64:
		return integralOr(x, v)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
		return v
	default:
		return v
	}
}

// integralOr returns f as an int when it has no fractional part.
// JSON decoding yields float64 for every number, so 6.0 is an integer here.
func integralOr(f float64, orig any) any {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return orig
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return orig
	}
	return int(f)
}

func coerceNumber(v any) any {
	switch x := v.(type) {
	case bool:
		return v
	case float64:
		return x
	case float32:
		return float64(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := toFloat(x)
		return f
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
		return v
	default:
		return v
	}
}

func coerceBoolean(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(x) {
		case "true", "yes", "1":
			return true
		}
		return false
	default:
		return truthy(v)
	}
}

// truthy treats nil, zero numbers and empty collections as false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func coerceString(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	return Stringify(v)
}

func coerceArray(v any) any {
	switch x := v.(type) {
	case []any:
		return x
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(x), &parsed); err == nil {
			if list, ok := parsed.([]any); ok {
				return list
			}
		}
		return []any{v}
	default:
		rv := reflect.ValueOf(v)
		if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			out := make([]any, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Interface()
			}
			return out
		}
		return []any{v}
	}
}

// Stringify renders a value the same way regardless of its dynamic type:
// numbers without trailing zeros, composites as JSON, nil as "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.FormatInt(reflect.ValueOf(x).Convert(reflect.TypeOf(int64(0))).Int(), 10)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// toFloat reports the numeric value of v, if v is a number.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
