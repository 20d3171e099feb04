package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"/v2/status", "/v2/status", true},
		{"/v2/status", "/v2/ready", false},

		{"/v2/*", "/v2/status", true},
		{"/v2/*", "/v2/blocks/123", false},
		{"/v2/**", "/v2/blocks/123", true},
		{"/v2/**", "/health", false},

		{"/v2/*/details", "/v2/accounts/details", true},
		{"/v2/*/details", "/v2/accounts/summary", false},

		{"**", "/anything/at/all", true},
		{"/v2/[", "/v2/[", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, matchGlob(tt.pattern, tt.input))
		})
	}
}

func TestShouldRecord(t *testing.T) {
	t.Run("empty filter records everything", func(t *testing.T) {
		assert.True(t, NewFilterConfig().ShouldRecord("/v2/status"))
	})

	t.Run("nil filter records everything", func(t *testing.T) {
		var f *FilterConfig
		assert.True(t, f.ShouldRecord("/v2/status"))
	})

	t.Run("exclude wins over include", func(t *testing.T) {
		f := &FilterConfig{IncludePaths: []string{"/v2/**"}, ExcludePaths: []string{"/v2/status"}}
		assert.False(t, f.ShouldRecord("/v2/status"))
		assert.True(t, f.ShouldRecord("/v2/blocks/1"))
	})

	t.Run("include limits recording", func(t *testing.T) {
		f := &FilterConfig{IncludePaths: []string{"/v2/accounts/*"}}
		assert.True(t, f.ShouldRecord("/v2/accounts/ABC"))
		assert.False(t, f.ShouldRecord("/health"))
	})
}

func TestFilterValidate(t *testing.T) {
	require.NoError(t, (&FilterConfig{IncludePaths: []string{"/v2/**"}}).Validate())

	err := (&FilterConfig{ExcludePaths: []string{"/v2/["}}).Validate()
	var perr *InvalidPatternError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/v2/[", perr.Pattern)
}
