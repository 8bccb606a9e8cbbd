package stepconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLeavesToValues(t *testing.T) {
	in := map[string]any{
		"a": &Value{Raw: "x", Source: "f"},
		"b": []any{Value{Raw: 1}, "y"},
		"c": map[string]any{"d": &Value{Raw: true}},
	}
	out := ConvertLeavesToValues(in)
	assert.Equal(t, map[string]any{
		"a": "x",
		"b": []any{1, "y"},
		"c": map[string]any{"d": true},
	}, out)

	var nilValue *Value
	assert.Nil(t, ConvertLeavesToValues(nilValue))
	assert.Equal(t, "", nilValue.String())
}

func TestValueIsSet(t *testing.T) {
	tests := []struct {
		name     string
		value    *Value
		expected bool
	}{
		{name: "nil value", value: nil, expected: false},
		{name: "nil raw", value: &Value{}, expected: false},
		{name: "empty string", value: &Value{Raw: ""}, expected: false},
		{name: "empty list", value: &Value{Raw: []any{}}, expected: false},
		{name: "string", value: &Value{Raw: "x"}, expected: true},
		{name: "false", value: &Value{Raw: false}, expected: true},
		{name: "list", value: &Value{Raw: []any{"a"}}, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.IsSet())
		})
	}
}

func TestParseBool(t *testing.T) {
	truthy := []any{true, "true", "True", "yes", "1", 1, &Value{Raw: "on"}}
	for _, v := range truthy {
		b, err := ParseBool(v)
		require.NoError(t, err, "%v", v)
		assert.True(t, b, "%v", v)
	}

	falsy := []any{false, "false", "FALSE", "no", "0", 0}
	for _, v := range falsy {
		b, err := ParseBool(v)
		require.NoError(t, err, "%v", v)
		assert.False(t, b, "%v", v)
	}

	for _, v := range []any{"maybe", nil, 1.5} {
		_, err := ParseBool(v)
		assert.Error(t, err, "%v", v)
	}
}
