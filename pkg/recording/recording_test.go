package recording

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/cassette/pkg/header"
)

func TestCaptureRequest(t *testing.T) {
	u, _ := url.Parse("https://api.example.com/v2/status?format=json")
	req := &http.Request{
		Method: http.MethodPost,
		URL:    u,
		Proto:  "HTTP/1.1",
		Header: http.Header{"Content-Type": {"application/json"}},
	}

	got := CaptureRequest(req, []byte(`{"a":1}`))

	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "https://api.example.com/v2/status?format=json", got.URL)
	assert.Equal(t, "application/json", got.Header.Get("content-type"))
	assert.Equal(t, `{"a":1}`, got.Body.Text)
	assert.Equal(t, EncodingIdentity, got.Body.Encoding)
	assert.Equal(t, "application/json", got.Body.MimeType)
}

func TestCaptureResponse_StatusText(t *testing.T) {
	resp := &http.Response{
		StatusCode: 404,
		Status:     "404 Not Found",
		Header:     http.Header{},
	}

	got := CaptureResponse(resp, nil)

	assert.Equal(t, 404, got.Status)
	assert.Equal(t, "Not Found", got.StatusText)
	assert.Equal(t, "HTTP/1.1", got.HTTPVersion)
}

func TestResponse_HTTPResponse(t *testing.T) {
	raw := []byte{0x82, 0xa1, 0x61, 0x01, 0xff}
	r := Response{
		Status: 200,
		Header: header.Header{{Name: "Content-Type", Value: "application/msgpack"}},
		Body: Body{
			Text:     base64.StdEncoding.EncodeToString(raw),
			Encoding: EncodingBase64,
		},
	}

	resp, err := r.HTTPResponse(nil)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, raw, body)
	assert.Equal(t, int64(len(raw)), resp.ContentLength)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, 1, resp.ProtoMajor)
	assert.Equal(t, "application/msgpack", resp.Header.Get("Content-Type"))
}

func TestBody_Bytes(t *testing.T) {
	tests := []struct {
		name    string
		body    Body
		want    []byte
		wantErr bool
	}{
		{name: "identity", body: Body{Text: "hi", Encoding: EncodingIdentity}, want: []byte("hi")},
		{name: "empty tag is identity", body: Body{Text: "hi"}, want: []byte("hi")},
		{name: "base64", body: Body{Text: "aGk=", Encoding: EncodingBase64}, want: []byte("hi")},
		{name: "bad base64", body: Body{Text: "%%%", Encoding: EncodingBase64}, wantErr: true},
		{name: "unknown tag", body: Body{Text: "hi", Encoding: "rot13"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.body.Bytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInteraction_Clone(t *testing.T) {
	ix := NewInteraction(
		Request{Method: "GET", URL: "http://x/", Header: header.Header{{Name: "A", Value: "1"}}},
		Response{Status: 200, Header: header.Header{{Name: "B", Value: "2"}}},
		time.Now(), time.Millisecond,
	)

	c := ix.Clone()
	c.Request.Header.Set("A", "changed")

	assert.Equal(t, "1", ix.Request.Header.Get("A"))
	assert.Equal(t, ix.ID, c.ID)
	assert.NotEmpty(t, ix.ID)
}
