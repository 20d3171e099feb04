package matching

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/v2/status", "/v2/status", true},
		{"/v2/status", "/v2/status/", false},
		{"/v2/accounts/{address}", "/v2/accounts/ABC", true},
		{"/v2/accounts/{address}", "/v2/accounts/ABC/assets", false},
		{"/v2/accounts/{address}/assets/{id}", "/v2/accounts/ABC/assets/7", true},
		{"/v2/blocks/*", "/v2/blocks/123", true},
		{"/v2/blocks/*", "/v2/blocks", true},
		{"/v2/blocks/*", "/v2/blockz/1", false},
		{"/v2/*/raw", "/v2/blocks/raw", true},
		{"/v2/*/raw", "/v2/blocks/raw/extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPath(tt.pattern, tt.path))
		})
	}
}

func TestMatchPathPattern(t *testing.T) {
	ok, captures := MatchPathPattern(`^/v2/blocks/(?P<round>\d+)$`, "/v2/blocks/456")
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"round": "456"}, captures)

	ok, _ = MatchPathPattern(`^/v2/blocks/\d+$`, "/v2/blocks/abc")
	assert.False(t, ok)

	ok, _ = MatchPathPattern(`[invalid`, "/anything")
	assert.False(t, ok)

	assert.Error(t, ValidatePathPattern(`[invalid`))
	assert.NoError(t, ValidatePathPattern(""))
}

func TestPathParams(t *testing.T) {
	assert.Equal(t, map[string]string{"id": "123"}, PathParams("/users/{id}", "/users/123"))
	assert.Equal(t, map[string]string{"0": "456/x"}, PathParams("/api/users/*", "/api/users/456/x"))
	assert.Equal(t,
		map[string]string{"0": "users", "1": "789"},
		PathParams("/api/*/items/*", "/api/users/items/789"))
}

func TestBodyCriteria(t *testing.T) {
	re := regexp.MustCompile(`"round":\s*\d+`)
	c := BodyCriteria{Contains: "round", Pattern: re}

	assert.True(t, c.Match([]byte(`{"round": 12}`)))
	assert.False(t, c.Match([]byte(`{"round": "x"}`)))
	assert.True(t, BodyCriteria{}.Match(nil))
	assert.False(t, BodyCriteria{Equals: "a"}.Match([]byte("ab")))

	p, err := CompileBodyPattern("")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
