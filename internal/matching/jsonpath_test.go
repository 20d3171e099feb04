package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchJSONPath(t *testing.T) {
	tests := []struct {
		name       string
		conditions map[string]any
		body       string
		wantMatch  bool
	}{
		{
			name:       "string field",
			conditions: map[string]any{"$.status": "active"},
			body:       `{"status": "active", "name": "test"}`,
			wantMatch:  true,
		},
		{
			name:       "string field mismatch",
			conditions: map[string]any{"$.status": "active"},
			body:       `{"status": "inactive"}`,
		},
		{
			name:       "integer from yaml against json number",
			conditions: map[string]any{"$.round": 24099447},
			body:       `{"round": 24099447}`,
			wantMatch:  true,
		},
		{
			name:       "float against integer",
			conditions: map[string]any{"$.count": float64(42)},
			body:       `{"count": 42}`,
			wantMatch:  true,
		},
		{
			name:       "boolean",
			conditions: map[string]any{"$.enabled": false},
			body:       `{"enabled": false}`,
			wantMatch:  true,
		},
		{
			name:       "null",
			conditions: map[string]any{"$.deleted": nil},
			body:       `{"deleted": null}`,
			wantMatch:  true,
		},
		{
			name:       "all conditions must hold",
			conditions: map[string]any{"$.status": "active", "$.count": 10},
			body:       `{"status": "active", "count": 20}`,
		},
		{
			name:       "missing field",
			conditions: map[string]any{"$.missing": "value"},
			body:       `{"status": "active"}`,
		},
		{
			name:       "exists true",
			conditions: map[string]any{"$.txn": map[string]any{"exists": true}},
			body:       `{"txn": {"id": "X"}}`,
			wantMatch:  true,
		},
		{
			name:       "exists false",
			conditions: map[string]any{"$.error": map[string]any{"exists": false}},
			body:       `{"ok": true}`,
			wantMatch:  true,
		},
		{
			name:       "wildcard selects any element",
			conditions: map[string]any{"$.items[*].id": "b"},
			body:       `{"items": [{"id": "a"}, {"id": "b"}]}`,
			wantMatch:  true,
		},
		{
			name:       "not json",
			conditions: map[string]any{"$.status": "active"},
			body:       `status=active`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, err := CompileJSONPath(tt.conditions)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, MatchJSONPath(conds, []byte(tt.body)))
		})
	}
}

func TestMatchJSONPath_NoConditions(t *testing.T) {
	assert.True(t, MatchJSONPath(nil, []byte("not json")))
}

func TestCompileJSONPath_Invalid(t *testing.T) {
	_, err := CompileJSONPath(map[string]any{"$.a[": "x"})
	assert.Error(t, err)
}
