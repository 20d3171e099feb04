package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/cassette/pkg/header"
	"github.com/getmockd/cassette/pkg/recording"
)

func req(method, url string, h header.Header, body string) *recording.Request {
	return &recording.Request{
		Method: method,
		URL:    url,
		Header: h,
		Body:   recording.Body{Text: body, Encoding: recording.EncodingIdentity},
	}
}

func TestMatcher_DefaultPolicy(t *testing.T) {
	token := header.Header{{Name: "X-Algo-API-Token", Value: "aaaa"}}
	stored := req("GET", "http://algod/v2/status?a=1&b=2", token, "")
	m := New(Config{})

	tests := []struct {
		name      string
		live      *recording.Request
		wantMatch bool
		wantField string
	}{
		{name: "identical", live: req("GET", "http://algod/v2/status?a=1&b=2", token, ""), wantMatch: true},
		{name: "method case", live: req("get", "http://algod/v2/status?a=1&b=2", token, ""), wantMatch: true},
		{name: "host case", live: req("GET", "http://ALGOD/v2/status?a=1&b=2", token, ""), wantMatch: true},
		{name: "method differs", live: req("POST", "http://algod/v2/status?a=1&b=2", token, ""), wantField: FieldMethod},
		{name: "query order", live: req("GET", "http://algod/v2/status?b=2&a=1", token, ""), wantField: FieldQuery},
		{name: "path differs", live: req("GET", "http://algod/v2/ready?a=1&b=2", token, ""), wantField: FieldPath},
		{name: "host differs", live: req("GET", "http://kmd/v2/status?a=1&b=2", token, ""), wantField: FieldHost},
		{name: "extra header", live: req("GET", "http://algod/v2/status?a=1&b=2", append(token.Clone(), header.Field{Name: "X-Trace", Value: "1"}), ""), wantField: "header:x-trace"},
		{name: "missing header", live: req("GET", "http://algod/v2/status?a=1&b=2", nil, ""), wantField: "header:x-algo-api-token"},
		{name: "body differs", live: req("GET", "http://algod/v2/status?a=1&b=2", token, "x"), wantField: FieldBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, m.Match(tt.live, stored))
			mm := m.Explain(tt.live, stored)
			if tt.wantMatch {
				assert.Empty(t, mm)
				return
			}
			require.Len(t, mm, 1)
			assert.Equal(t, tt.wantField, mm[0].Field)
		})
	}
}

func TestMatcher_URLModes(t *testing.T) {
	stored := req("GET", "http://localhost:4001/v2/status?round=1", nil, "")

	tests := []struct {
		mode URLMode
		live string
		want bool
	}{
		{URLFull, "http://localhost:4001/v2/status?round=2", false},
		{URLIgnoreQuery, "http://localhost:4001/v2/status?round=2", true},
		{URLIgnoreQuery, "http://other:4001/v2/status", false},
		{URLPathQuery, "http://127.0.0.1:8080/v2/status?round=1", true},
		{URLPathQuery, "http://127.0.0.1:8080/v2/status?round=2", false},
		{URLPath, "https://anywhere/v2/status?x=y", true},
		{URLPath, "https://anywhere/v2/other", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+" "+tt.live, func(t *testing.T) {
			m := New(Config{URL: tt.mode})
			assert.Equal(t, tt.want, m.Match(req("GET", tt.live, nil, ""), stored))
		})
	}
}

func TestMatcher_IgnoreQueryOrder(t *testing.T) {
	stored := req("GET", "http://x/v2/accounts?limit=5&next=abc", nil, "")
	live := req("GET", "http://x/v2/accounts?next=abc&limit=5", nil, "")

	assert.False(t, New(Config{}).Match(live, stored))
	assert.True(t, New(Config{IgnoreQueryOrder: true}).Match(live, stored))
}

func TestMatcher_HeaderModes(t *testing.T) {
	stored := req("GET", "http://x/", header.Header{{Name: "Accept", Value: "application/json"}}, "")
	live := req("GET", "http://x/", header.Header{
		{Name: "accept", Value: "application/json"},
		{Name: "User-Agent", Value: "go-test"},
	}, "")

	assert.False(t, New(Config{Headers: HeadersExact}).Match(live, stored))
	assert.True(t, New(Config{Headers: HeadersSubset}).Match(live, stored))
	assert.True(t, New(Config{Headers: HeadersIgnore}).Match(live, stored))
	assert.True(t, New(Config{IgnoreHeaders: []string{"user-agent"}}).Match(live, stored))

	changed := req("GET", "http://x/", header.Header{{Name: "Accept", Value: "text/plain"}}, "")
	assert.False(t, New(Config{Headers: HeadersSubset}).Match(changed, stored))
}

func TestMatcher_BodyModes(t *testing.T) {
	stored := req("POST", "http://x/", nil, `{"a":1,"b":[1,2]}`)
	live := req("POST", "http://x/", nil, `{"b": [1, 2], "a": 1}`)

	assert.False(t, New(Config{}).Match(live, stored))
	assert.True(t, New(Config{Body: BodyJSON}).Match(live, stored))
	assert.True(t, New(Config{Body: BodyIgnore}).Match(req("POST", "http://x/", nil, "other"), stored))
}

func TestMatcher_BodyEncodingsCompareDecoded(t *testing.T) {
	stored := &recording.Request{
		Method: "POST",
		URL:    "http://x/v2/transactions",
		Body:   recording.Body{Text: "AAEC", Encoding: recording.EncodingBase64},
	}
	live := &recording.Request{
		Method: "POST",
		URL:    "http://x/v2/transactions",
		Body:   recording.Body{Text: string([]byte{0, 1, 2}), Encoding: recording.EncodingIdentity},
	}

	assert.True(t, New(Config{}).Match(live, stored))
}

func TestMatcher_Closest(t *testing.T) {
	m := New(Config{})
	candidates := []*recording.Interaction{
		{ID: "a", Order: 0, Request: *req("POST", "http://x/v2/other", nil, "")},
		{ID: "b", Order: 1, Request: *req("POST", "http://x/v2/status", nil, "")},
		{ID: "c", Order: 2, Request: *req("PUT", "http://x/v2/status", nil, "")},
	}

	near := m.Closest(req("GET", "http://x/v2/status", nil, ""), candidates)
	require.NotNil(t, near)
	assert.Equal(t, "b", near.ID)
	require.Len(t, near.Mismatches, 1)
	assert.Equal(t, FieldMethod, near.Mismatches[0].Field)
	assert.Contains(t, near.Reason(), `method: stored "POST", live "GET"`)

	assert.Nil(t, m.Closest(req("GET", "http://x/", nil, ""), nil))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{URL: "fuzzy"}.Validate())
	assert.Error(t, Config{Headers: "some"}.Validate())
	assert.Error(t, Config{Body: "hash"}.Validate())
}

func TestMatchHeaderPattern(t *testing.T) {
	h := header.Header{{Name: "Authorization", Value: "Bearer abc123"}}

	assert.True(t, MatchHeaderPattern("authorization", "Bearer *", h))
	assert.True(t, MatchHeaderPattern("Authorization", "*abc*", h))
	assert.True(t, MatchHeaderPattern("Authorization", "*123", h))
	assert.True(t, MatchHeaderPattern("Authorization", "*", h))
	assert.False(t, MatchHeaderPattern("Authorization", "Basic *", h))
	assert.False(t, MatchHeaderPattern("X-Missing", "*", h))
	assert.True(t, MatchHeaders(map[string]string{"authorization": "Bearer abc123"}, h))
}
