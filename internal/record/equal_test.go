package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nils", nil, nil, true},
		{"nil vs value", nil, 1, false},
		{"bools", true, true, true},
		{"strings", "a", "a", true},
		{"string mismatch", "a", "b", false},
		{"int vs int64", 3, int64(3), true},
		{"int vs integral float", 3, 3.0, true},
		{"float mismatch", 0.25, 0.5, false},
		{"number vs string", 1, "1", false},
		{"arrays", []any{1, "x"}, []any{int64(1), "x"}, true},
		{"array length", []any{1}, []any{1, 2}, false},
		{"array order", []any{1, 2}, []any{2, 1}, false},
		{"maps", map[string]any{"a": 1}, map[string]any{"a": 1.0}, true},
		{"map missing key", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"map extra key", map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}, false},
		{"record vs map", Record{"a": 1}, map[string]any{"a": 1}, true},
		{
			"nested descriptors",
			[]any{map[string]any{"interval": []any{0.2, 0.4}, "color": "#F00"}},
			[]any{map[string]any{"interval": []any{0.2, 0.4}, "color": "#F00"}},
			true,
		},
		{
			"nested descriptor diff",
			[]any{map[string]any{"interval": []any{0.2, 0.4}, "color": "#F00"}},
			[]any{map[string]any{"interval": []any{0.2, 0.5}, "color": "#F00"}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal should be symmetric")
		})
	}
}
