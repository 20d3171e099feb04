package config

import (
	"github.com/getmockd/cassette/pkg/session"
)

// DefaultServerPort is the default mock server port.
const DefaultServerPort = 4380

// DefaultProxyPort is the default recording proxy port.
const DefaultProxyPort = 4381

// DefaultMode is replay so a fresh checkout never touches the network.
const DefaultMode = string(session.ModeReplay)

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Mode:          DefaultMode,
		RecordingsDir: session.DefaultDir,
		Server:        ServerConfig{Port: DefaultServerPort},
		Proxy:         ProxyConfig{Port: DefaultProxyPort},
		Log:           LogConfig{Level: "info", Format: "text"},
		Sources:       make(map[string]string),
	}

	for _, key := range []string{"mode", "recordingsDir", "server.port", "proxy.port", "log.level", "log.format"} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}
