package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".cassette.yaml", ".cassette.yml"}

// FindLocalConfig searches for .cassette.yaml or .cassette.yml in dir.
// It returns "" when neither exists.
func FindLocalConfig(dir string) string {
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFile loads a Config from a YAML file. Unknown keys are errors.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: path, Line: yamlErrorLine(err), Message: err.Error()}
	}

	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Message)
	}
	return e.Path + ": " + e.Message
}

// yamlErrorLine extracts the line from a yaml.v3 syntax error message
// ("yaml: line 3: ...").
func yamlErrorLine(err error) int {
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr != nil {
		return 0
	}
	return line
}

// Load loads configuration from all sources and merges them.
// Precedence: env > file > defaults; flags are applied by the caller.
// explicit names the config file from --config; when empty CASSETTE_CONFIG
// and then the working directory are searched. A missing explicit file is
// an error, a missing local file is not.
func Load(explicit string) (*Config, error) {
	cfg := NewDefault()

	path, source := explicit, SourceFlag
	if path == "" {
		path, source = os.Getenv(EnvConfig), SourceEnv
	}
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path, source = FindLocalConfig(cwd), SourceFile
		}
	}

	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, fileCfg, SourceFile)
		cfg.ConfigFile = path
		cfg.Sources["configFile"] = source
	}

	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
