package stepconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a configuration value together with where it was defined
type Value struct {
	Raw    any
	Source string
}

func (v *Value) String() string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", ConvertLeavesToValues(v.Raw))
}

// IsSet reports whether the value carries anything besides nil or an empty string
func (v *Value) IsSet() bool {
	if v == nil || v.Raw == nil {
		return false
	}
	switch raw := v.Raw.(type) {
	case string:
		return raw != ""
	case []any:
		return len(raw) > 0
	case map[string]any:
		return len(raw) > 0
	}
	return true
}

// ConvertLeavesToValues strips Value wrappers from a (possibly nested) structure
func ConvertLeavesToValues(v any) any {
	switch t := v.(type) {
	case *Value:
		if t == nil {
			return nil
		}
		return ConvertLeavesToValues(t.Raw)
	case Value:
		return ConvertLeavesToValues(t.Raw)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ConvertLeavesToValues(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ConvertLeavesToValues(val)
		}
		return out
	}
	return v
}

// ParseBool interprets YAML booleans as well as the usual string spellings
func ParseBool(v any) (bool, error) {
	switch t := ConvertLeavesToValues(v).(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "on", "1":
			return true, nil
		case "false", "no", "n", "off", "0":
			return false, nil
		}
		if b, err := strconv.ParseBool(t); err == nil {
			return b, nil
		}
		return false, fmt.Errorf("invalid boolean value %q", t)
	case nil:
		return false, fmt.Errorf("boolean value is not set")
	default:
		return false, fmt.Errorf("invalid boolean value of type %T", t)
	}
}
