// Package config provides configuration types and loading for the cassette
// CLI.
package config

import (
	"github.com/getmockd/cassette/pkg/session"
)

// Config represents the complete configuration for the cassette CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Config file (.cassette.yaml in the current directory, or --config)
// 4. Default values (lowest priority)
type Config struct {
	Mode               string              `yaml:"mode" json:"mode"`
	RecordingsDir      string              `yaml:"recordingsDir" json:"recordingsDir"`
	Database           string              `yaml:"database,omitempty" json:"database,omitempty"`
	Match              session.MatchConfig `yaml:"match,omitempty" json:"match,omitempty"`
	Rewrites           []session.Rewrite   `yaml:"rewrites,omitempty" json:"rewrites,omitempty"`
	BinaryContentTypes []string            `yaml:"binaryContentTypes,omitempty" json:"binaryContentTypes,omitempty"`

	Server ServerConfig `yaml:"server" json:"server"`
	Proxy  ProxyConfig  `yaml:"proxy" json:"proxy"`
	Log    LogConfig    `yaml:"log" json:"log"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `yaml:"-" json:"configFile,omitempty"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`
}

// ServerConfig configures the mock server.
type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
	// Spec is an OpenAPI document for the baseline layer.
	Spec string `yaml:"spec,omitempty" json:"spec,omitempty"`
	// Custom is a YAML file of hand-written overrides.
	Custom string `yaml:"custom,omitempty" json:"custom,omitempty"`
	// Recordings are glob patterns of recording files.
	Recordings []string `yaml:"recordings,omitempty" json:"recordings,omitempty"`
	// Match overrides the recorded layer's matching policy.
	Match *session.MatchConfig `yaml:"match,omitempty" json:"match,omitempty"`
}

// ProxyConfig configures the recording reverse proxy.
type ProxyConfig struct {
	Port     int      `yaml:"port" json:"port"`
	Upstream string   `yaml:"upstream,omitempty" json:"upstream,omitempty"`
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	Include  []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)
