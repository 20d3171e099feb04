package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/cassette/pkg/config"
	"github.com/getmockd/cassette/pkg/header"
	"github.com/getmockd/cassette/pkg/logging"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/resolver"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRecording(t *testing.T, dir, name string) string {
	t.Helper()
	status := recording.NewInteraction(recording.Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:4001/v2/status",
	}, recording.Response{
		Status: http.StatusOK,
		Header: header.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:   recording.NewBody([]byte(`{"last-round":7}`), "application/json"),
	}, time.Unix(0, 0), 12*time.Millisecond)
	block := recording.NewInteraction(recording.Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:4001/v2/blocks/7?format=msgpack",
	}, recording.Response{
		Status: http.StatusOK,
		Body:   recording.Body{Text: "gqNibGs=", Encoding: recording.EncodingBase64, MimeType: "application/msgpack"},
	}, time.Unix(1, 0), time.Millisecond)

	p := recording.NewFilePersister(dir)
	rec := &recording.Recording{Name: name, Interactions: []*recording.Interaction{status, block}}
	require.NoError(t, p.Save(context.Background(), name, rec))
	return p.Path(name)
}

func TestInspect(t *testing.T) {
	t.Parallel()

	path := writeRecording(t, t.TempDir(), "algod")

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ORDER", "METHOD", "URL", "STATUS", "ENCODING"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "GET", "http://127.0.0.1:4001/v2/status", "200", "identity"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "GET", "http://127.0.0.1:4001/v2/blocks/7?format=msgpack", "200", "base64"}, strings.Fields(lines[2]))

	out, err = execute(t, "inspect", "--json", path)
	require.NoError(t, err)
	var got InspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "algod", got.Name)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, int64(12), got.Entries[0].DurationMs)
	assert.Equal(t, "base64", got.Entries[1].Encoding)
}

func TestInspect_Missing(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "nope", "recording.har"))
	require.Error(t, err)
	assert.ErrorIs(t, err, recording.ErrRecordingNotFound)

	_, err = execute(t, "inspect")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeRecording(t, dir, "algod")
	bad := filepath.Join(dir, "broken", "recording.har")
	require.NoError(t, os.MkdirAll(filepath.Dir(bad), 0o755))
	require.NoError(t, os.WriteFile(bad, []byte(`{"log":{"entries":[{"request":{}}]}}`), 0o644))

	out, err := execute(t, "verify", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok    "+good+" (2 interactions)")

	out, err = execute(t, "verify", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 recordings failed verification")
	assert.Contains(t, out, "FAIL  "+bad)

	out, err = execute(t, "verify", "--json", good, bad)
	require.Error(t, err)
	var results []VerifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	var v VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.NotEmpty(t, v.Version)
	assert.NotEmpty(t, v.Go)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cassette "))
}

const statusSpec = `
openapi: 3.0.3
info:
  title: algod
  version: "2.0"
paths:
  /v2/status:
    get:
      responses:
        "200":
          description: ok
  /v2/ledger/supply:
    get:
      responses:
        "200":
          description: ok
`

func TestBuildResolver(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRecording(t, filepath.Join(dir, "recordings"), "algod")
	specPath := filepath.Join(dir, "algod.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(statusSpec), 0o644))
	customPath := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(customPath, []byte("overrides:\n  - path: /v2/status\n    response:\n      status: 503\n"), 0o644))

	r, err := buildResolver(context.Background(), config.ServerConfig{
		Spec:       specPath,
		Custom:     customPath,
		Recordings: []string{filepath.Join(dir, "recordings", "*", "recording.har")},
	}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, map[resolver.Layer]int{
		resolver.LayerCustom:   1,
		resolver.LayerRecorded: 2,
		resolver.LayerBaseline: 2,
	}, r.Counts())

	t.Run("missing override file", func(t *testing.T) {
		_, err := buildResolver(context.Background(), config.ServerConfig{Custom: filepath.Join(dir, "missing.yaml")}, logging.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load overrides")
	})

	t.Run("bad spec", func(t *testing.T) {
		_, err := buildResolver(context.Background(), config.ServerConfig{Spec: filepath.Join(dir, "missing.yaml")}, logging.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load OpenAPI document")
	})

	t.Run("empty", func(t *testing.T) {
		r, err := buildResolver(context.Background(), config.ServerConfig{}, logging.Nop())
		require.NoError(t, err)
		assert.Empty(t, r.Candidates())
	})
}

func TestServeListener(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- serveListener(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}), logging.Nop(), func(context.Context) error {
			close(shutdown)
			return nil
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-shutdown:
	default:
		t.Fatal("onShutdown was not called")
	}
}

func TestSessionName(t *testing.T) {
	t.Parallel()

	name, err := sessionName(config.ProxyConfig{Name: "algod", Upstream: "http://127.0.0.1:4001"})
	require.NoError(t, err)
	assert.Equal(t, "algod", name)

	name, err = sessionName(config.ProxyConfig{Upstream: "http://indexer.local:8980/api"})
	require.NoError(t, err)
	assert.Equal(t, "indexer.local", name)

	_, err = sessionName(config.ProxyConfig{Upstream: "not a url"})
	require.Error(t, err)
}

func TestProxyCommand_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "proxy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream is required")

	_, err = execute(t, "proxy", "--upstream", "http://127.0.0.1:4001", "--mode", "rewind")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = execute(t, "proxy", "--upstream", "http://127.0.0.1:4001", "--rewrite", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rewrite")

	// Replay of a recording that was never made.
	_, err = execute(t, "proxy", "--upstream", "http://127.0.0.1:4001", "--mode", "replay", "--recordings-dir", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, recording.ErrRecordingNotFound)
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "serve", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}
