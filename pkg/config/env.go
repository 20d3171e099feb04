package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvConfig        = "CASSETTE_CONFIG"
	EnvMode          = "CASSETTE_MODE"
	EnvRecordingsDir = "CASSETTE_RECORDINGS_DIR"
	EnvDatabase      = "CASSETTE_DATABASE"
	EnvPort          = "CASSETTE_PORT"
	EnvProxyPort     = "CASSETTE_PROXY_PORT"
	EnvUpstream      = "CASSETTE_UPSTREAM"
	EnvLogLevel      = "CASSETTE_LOG_LEVEL"
	EnvLogFormat     = "CASSETTE_LOG_FORMAT"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment; a malformed
// number is an error.
func LoadEnvConfig(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	for _, s := range []struct {
		env, key string
		dst      *string
	}{
		{EnvMode, "mode", &cfg.Mode},
		{EnvRecordingsDir, "recordingsDir", &cfg.RecordingsDir},
		{EnvDatabase, "database", &cfg.Database},
		{EnvUpstream, "proxy.upstream", &cfg.Proxy.Upstream},
		{EnvLogLevel, "log.level", &cfg.Log.Level},
		{EnvLogFormat, "log.format", &cfg.Log.Format},
	} {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
			cfg.Sources[s.key] = SourceEnv
		}
	}

	for _, s := range []struct {
		env, key string
		dst      *int
	}{
		{EnvPort, "server.port", &cfg.Server.Port},
		{EnvProxyPort, "proxy.port", &cfg.Proxy.Port},
	} {
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", s.env, v)
		}
		*s.dst = port
		cfg.Sources[s.key] = SourceEnv
	}
	return nil
}
