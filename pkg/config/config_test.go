package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/cassette/pkg/logging"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/session"
)

const fileYAML = `
mode: record-new
recordingsDir: fixtures
match:
  url: ignore-query
  ignoreHeaders: [User-Agent]
  order: true
rewrites:
  - from: http://127.0.0.1:4001
    to: http://algod
binaryContentTypes: [msgpack]
server:
  port: 9000
  spec: algod.oas3.yml
  recordings: ["fixtures/**/recording.har"]
proxy:
  upstream: http://localhost:4001
  name: algod
log:
  level: debug
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvConfig, EnvMode, EnvRecordingsDir, EnvDatabase, EnvPort, EnvProxyPort, EnvUpstream, EnvLogLevel, EnvLogFormat} {
		t.Setenv(env, "")
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, session.ModeReplay, cfg.SessionMode())
	assert.Equal(t, session.DefaultDir, cfg.RecordingsDir)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, SourceDefault, cfg.Sources["mode"])
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "cassette.yaml", fileYAML)

	t.Setenv(EnvMode, "record-overwrite")
	t.Setenv(EnvPort, "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, SourceFlag, cfg.Sources["configFile"])

	// env beats file
	assert.Equal(t, "record-overwrite", cfg.Mode)
	assert.Equal(t, SourceEnv, cfg.Sources["mode"])
	assert.Equal(t, 9100, cfg.Server.Port)

	// file beats defaults
	assert.Equal(t, "fixtures", cfg.RecordingsDir)
	assert.Equal(t, SourceFile, cfg.Sources["recordingsDir"])
	assert.Equal(t, session.URLIgnoreQuery, cfg.Match.URL)
	assert.True(t, cfg.Match.Order)
	assert.Equal(t, []session.Rewrite{{From: "http://127.0.0.1:4001", To: "http://algod"}}, cfg.Rewrites)
	assert.Equal(t, []string{"fixtures/**/recording.har"}, cfg.Server.Recordings)
	assert.Equal(t, "algod", cfg.Proxy.Name)
	assert.Equal(t, logging.LevelDebug, cfg.LoggingConfig().Level)

	// untouched defaults remain
	assert.Equal(t, DefaultProxyPort, cfg.Proxy.Port)
	assert.Equal(t, SourceDefault, cfg.Sources["proxy.port"])

	// flags beat everything
	cfg.Set("mode", func(c *Config) { c.Mode = "replay" }, SourceFlag)
	assert.Equal(t, session.ModeReplay, cfg.SessionMode())
	assert.Equal(t, SourceFlag, cfg.Sources["mode"])

	opts := cfg.SessionOptions("algod")
	assert.Equal(t, "algod", opts.Name)
	assert.Equal(t, "fixtures", opts.Dir)
	assert.Equal(t, []string{"msgpack"}, opts.BinaryContentTypes)
	assert.Nil(t, opts.Persister)
}

func TestSessionOptions_Database(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "recordings.db")
	t.Setenv(EnvDatabase, dbPath)

	cfg, err := Load(writeFile(t, t.TempDir(), "c.yaml", "mode: replay\n"))
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, cfg.Sources["database"])

	opts := cfg.SessionOptions("algod")
	p, ok := opts.Persister.(*recording.SQLitePersister)
	require.True(t, ok)
	assert.Equal(t, dbPath, p.Path)
}

func TestLoad_LocalFileAndEnvPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".cassette.yaml", "mode: record-new\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "record-new", cfg.Mode)
	assert.Equal(t, SourceFile, cfg.Sources["configFile"])

	other := writeFile(t, t.TempDir(), "other.yml", "mode: record-overwrite\n")
	t.Setenv(EnvConfig, other)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "record-overwrite", cfg.Mode)
	assert.Equal(t, SourceEnv, cfg.Sources["configFile"])
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, DefaultMode, cfg.Mode)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, dir, "unknown.yaml", "mode: replay\nbogus: 1\n"))
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "bogus")

	_, err = Load(writeFile(t, dir, "syntax.yaml", "mode: replay\nserver:\n  port: [\n"))
	require.ErrorAs(t, err, &cerr)
	assert.Positive(t, cerr.Line)

	t.Setenv(EnvPort, "eighty")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Mode = "record-all" }, "invalid mode"},
		{"unknown url mode", func(c *Config) { c.Match.URL = "fuzzy" }, "unknown url match mode"},
		{"unknown header mode", func(c *Config) { c.Match.Headers = "some" }, "unknown header match mode"},
		{"unknown server match", func(c *Config) { c.Server.Match = &session.MatchConfig{Body: "xml"} }, "server.match"},
		{"empty rewrite", func(c *Config) { c.Rewrites = []session.Rewrite{{To: "http://algod"}} }, "empty from address"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port 70000 is out of range"},
		{"relative upstream", func(c *Config) { c.Proxy.Upstream = "/api" }, "not an absolute URL"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"no recordings dir", func(c *Config) { c.RecordingsDir = "" }, "recordingsDir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := NewDefault()
	cfg.Mode = "bogus"
	assert.ErrorIs(t, cfg.Validate(), session.ErrInvalidMode)
}

func TestMergeConfig(t *testing.T) {
	t.Run("does not overwrite with zero values", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, &Config{}, SourceFile)
		assert.Equal(t, DefaultServerPort, target.Server.Port)
		assert.Equal(t, SourceDefault, target.Sources["server.port"])
	})

	t.Run("nil source is no-op", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, nil, SourceFile)
		assert.Equal(t, NewDefault().Mode, target.Mode)
	})
}
