package recording

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/cassette/pkg/header"
)

func sampleRecording() *Recording {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	binary := []byte{0x80, 0x00, 0xfe}
	return &Recording{
		Name: "algod",
		Interactions: []*Interaction{
			{
				ID:        "11111111-1111-1111-1111-111111111111",
				StartedAt: started,
				Duration:  15 * time.Millisecond,
				Request: Request{
					Method:      "GET",
					URL:         "https://testnet-api.example.dev/v2/status?b=2&a=1",
					HTTPVersion: "HTTP/1.1",
					Header:      header.Header{{Name: "X-Algo-API-Token", Value: "aaaa"}},
					Body:        Body{Encoding: EncodingIdentity},
				},
				Response: Response{
					Status:      200,
					StatusText:  "OK",
					HTTPVersion: "HTTP/1.1",
					Header:      header.Header{{Name: "Content-Type", Value: "application/json"}},
					Body:        Body{Text: `{"last-round":24099447,"html":"<b>"}`, Encoding: EncodingIdentity, MimeType: "application/json"},
				},
			},
			{
				ID:        "22222222-2222-2222-2222-222222222222",
				StartedAt: started.Add(time.Second),
				Request: Request{
					Method: "POST",
					URL:    "https://testnet-api.example.dev/v2/transactions",
					Header: header.Header{{Name: "Content-Type", Value: "application/x-binary"}},
					Body:   Body{Text: base64.StdEncoding.EncodeToString(binary), Encoding: EncodingBase64, MimeType: "application/x-binary"},
				},
				Response: Response{
					Status: 200,
					Header: header.Header{{Name: "Content-Type", Value: "application/msgpack"}},
					Body:   Body{Text: base64.StdEncoding.EncodeToString(binary), Encoding: EncodingBase64, MimeType: "application/msgpack"},
				},
			},
		},
	}
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	rec := sampleRecording()

	data, err := Marshal(rec)
	require.NoError(t, err)

	got, err := Unmarshal(data, "test.har")
	require.NoError(t, err)

	require.Len(t, got.Interactions, 2)
	assert.Equal(t, "algod", got.Name)
	for i, ix := range got.Interactions {
		want := rec.Interactions[i]
		assert.Equal(t, i, ix.Order)
		assert.Equal(t, want.ID, ix.ID)
		assert.True(t, want.StartedAt.Equal(ix.StartedAt))
		assert.Equal(t, want.Request.Method, ix.Request.Method)
		assert.Equal(t, want.Request.URL, ix.Request.URL)
		assert.True(t, want.Request.Header.Equal(ix.Request.Header))
		assert.Equal(t, want.Response.Status, ix.Response.Status)
		assert.True(t, want.Response.Header.Equal(ix.Response.Header))

		wantBody, _ := want.Response.Body.Bytes()
		gotBody, err := ix.Response.Body.Bytes()
		require.NoError(t, err)
		assert.Equal(t, wantBody, gotBody)

		wantReq, _ := want.Request.Body.Bytes()
		gotReq, err := ix.Request.Body.Bytes()
		require.NoError(t, err)
		assert.Equal(t, wantReq, gotReq)
	}
	assert.Equal(t, 15*time.Millisecond, got.Interactions[0].Duration)
}

func TestMarshal_HARShape(t *testing.T) {
	data, err := Marshal(sampleRecording())
	require.NoError(t, err)

	assert.Contains(t, string(data), "<b>")
	assert.NotContains(t, string(data), `\u003c`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	log := doc["log"].(map[string]any)
	assert.Equal(t, "1.2", log["version"])

	entries := log["entries"].([]any)
	first := entries[0].(map[string]any)
	req := first["request"].(map[string]any)
	query := req["queryString"].([]any)
	require.Len(t, query, 2)
	assert.Equal(t, "a", query[0].(map[string]any)["name"])
	assert.NotContains(t, req, "postData")

	content := first["response"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "identity", content["encoding"])

	second := entries[1].(map[string]any)
	content = second["response"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "base64", content["encoding"])
	assert.EqualValues(t, 3, content["size"])
}

func TestMarshal_RejectsRawBinaryIdentityBody(t *testing.T) {
	rec := &Recording{Interactions: []*Interaction{{
		Request:  Request{Method: "GET", URL: "http://x/"},
		Response: Response{Status: 200, Body: Body{Text: string([]byte{0xff, 0xfe}), Encoding: EncodingIdentity}},
	}}}

	_, err := Marshal(rec)
	assert.Error(t, err)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantEntry int
	}{
		{name: "not json", doc: `{"log":`, wantEntry: -1},
		{name: "missing log", doc: `{}`, wantEntry: -1},
		{name: "entries not array", doc: `{"log":{"entries":{}}}`, wantEntry: -1},
		{
			name:      "missing method",
			doc:       `{"log":{"entries":[{"request":{"url":"http://x/"},"response":{"status":200,"content":{}}}]}}`,
			wantEntry: -1,
		},
		{
			name:      "missing response content",
			doc:       `{"log":{"entries":[{"request":{"method":"GET","url":"http://x/"},"response":{"status":200}}]}}`,
			wantEntry: -1,
		},
		{
			name:      "unknown encoding",
			doc:       `{"log":{"entries":[{"request":{"method":"GET","url":"http://x/"},"response":{"status":200,"content":{"text":"x","encoding":"zip"}}}]}}`,
			wantEntry: -1,
		},
		{
			name:      "invalid base64 payload",
			doc:       `{"log":{"entries":[{"request":{"method":"GET","url":"http://x/"},"response":{"status":200,"content":{"text":"!!!","encoding":"base64"}}}]}}`,
			wantEntry: 0,
		},
		{
			name:      "bad timestamp",
			doc:       `{"log":{"entries":[{"startedDateTime":"yesterday","request":{"method":"GET","url":"http://x/"},"response":{"status":200,"content":{}}}]}}`,
			wantEntry: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.doc), "bad.har")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorruptRecording))

			var corrupt *CorruptRecordingError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, "bad.har", corrupt.Path)
			assert.Equal(t, tt.wantEntry, corrupt.Entry)
		})
	}
}

func TestUnmarshal_MinimalHandEditedEntry(t *testing.T) {
	doc := `{"log":{"entries":[{"request":{"method":"GET","url":"http://x/health"},"response":{"status":204,"content":{}}}]}}`

	rec, err := Unmarshal([]byte(doc), "hand.har")
	require.NoError(t, err)
	require.Len(t, rec.Interactions, 1)
	assert.Equal(t, EncodingIdentity, rec.Interactions[0].Response.Body.Encoding)
	assert.True(t, rec.Interactions[0].Request.Body.Empty())
}

func TestUnmarshal_EntriesWithoutIDGetDistinctIDs(t *testing.T) {
	entry := `{"request":{"method":"GET","url":"http://x/health"},"response":{"status":200,"content":{"text":"ok"}}}`
	doc := `{"log":{"entries":[` + entry + `,` + entry + `]}}`

	rec, err := Unmarshal([]byte(doc), "hand.har")
	require.NoError(t, err)
	require.Len(t, rec.Interactions, 2)
	assert.NotEmpty(t, rec.Interactions[0].ID)
	assert.NotEmpty(t, rec.Interactions[1].ID)
	assert.NotEqual(t, rec.Interactions[0].ID, rec.Interactions[1].ID)
}

func TestUnmarshal_SchemaViolationNamesField(t *testing.T) {
	doc := `{"log":{"entries":[{"request":{"method":"GET","url":"http://x/"},"response":{"status":"ok","content":{}}}]}}`

	_, err := Unmarshal([]byte(doc), "bad.har")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptRecording)
	assert.Contains(t, err.Error(), "/log/entries/0/response/status")
}
