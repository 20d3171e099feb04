package config

import (
	"reflect"
)

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	setString(target, "mode", &target.Mode, source.Mode, sourceType)
	setString(target, "recordingsDir", &target.RecordingsDir, source.RecordingsDir, sourceType)
	setString(target, "database", &target.Database, source.Database, sourceType)
	if !reflect.ValueOf(source.Match).IsZero() {
		target.Match = source.Match
		target.Sources["match"] = sourceType
	}
	if len(source.Rewrites) > 0 {
		target.Rewrites = source.Rewrites
		target.Sources["rewrites"] = sourceType
	}
	if len(source.BinaryContentTypes) > 0 {
		target.BinaryContentTypes = source.BinaryContentTypes
		target.Sources["binaryContentTypes"] = sourceType
	}

	setInt(target, "server.port", &target.Server.Port, source.Server.Port, sourceType)
	setString(target, "server.spec", &target.Server.Spec, source.Server.Spec, sourceType)
	setString(target, "server.custom", &target.Server.Custom, source.Server.Custom, sourceType)
	if len(source.Server.Recordings) > 0 {
		target.Server.Recordings = source.Server.Recordings
		target.Sources["server.recordings"] = sourceType
	}
	if source.Server.Match != nil {
		target.Server.Match = source.Server.Match
		target.Sources["server.match"] = sourceType
	}

	setInt(target, "proxy.port", &target.Proxy.Port, source.Proxy.Port, sourceType)
	setString(target, "proxy.upstream", &target.Proxy.Upstream, source.Proxy.Upstream, sourceType)
	setString(target, "proxy.name", &target.Proxy.Name, source.Proxy.Name, sourceType)
	if len(source.Proxy.Include) > 0 {
		target.Proxy.Include = source.Proxy.Include
		target.Sources["proxy.include"] = sourceType
	}
	if len(source.Proxy.Exclude) > 0 {
		target.Proxy.Exclude = source.Proxy.Exclude
		target.Sources["proxy.exclude"] = sourceType
	}

	setString(target, "log.level", &target.Log.Level, source.Log.Level, sourceType)
	setString(target, "log.format", &target.Log.Format, source.Log.Format, sourceType)
}

// Set records a value from sourceType. Used by the CLI for flags.
func (c *Config) Set(key string, apply func(*Config), sourceType string) {
	apply(c)
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = sourceType
}

func setString(cfg *Config, key string, dst *string, v, sourceType string) {
	if v != "" {
		*dst = v
		cfg.Sources[key] = sourceType
	}
}

func setInt(cfg *Config, key string, dst *int, v int, sourceType string) {
	if v != 0 {
		*dst = v
		cfg.Sources[key] = sourceType
	}
}
