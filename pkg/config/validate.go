package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/getmockd/cassette/pkg/logging"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/session"
)

// Validate checks the merged configuration. An unknown mode is reported as
// *session.InvalidModeError.
func (c *Config) Validate() error {
	var errs []error

	if _, err := session.ParseMode(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	}
	if c.RecordingsDir == "" {
		errs = append(errs, errors.New("recordingsDir is required"))
	}
	if err := c.Match.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("match: %w", err))
	}
	if c.Server.Match != nil {
		if err := c.Server.Match.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("server.match: %w", err))
		}
	}
	for i, rw := range c.Rewrites {
		if rw.From == "" {
			errs = append(errs, fmt.Errorf("rewrites[%d]: empty from address", i))
		}
	}
	if err := validatePort("server.port", c.Server.Port); err != nil {
		errs = append(errs, err)
	}
	if err := validatePort("proxy.port", c.Proxy.Port); err != nil {
		errs = append(errs, err)
	}
	if c.Proxy.Upstream != "" {
		if u, err := url.Parse(c.Proxy.Upstream); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("proxy.upstream %q is not an absolute URL", c.Proxy.Upstream))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}

	return errors.Join(errs...)
}

func validatePort(key string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s %d is out of range", key, port)
	}
	return nil
}

// SessionMode returns the parsed mode. Call Validate first.
func (c *Config) SessionMode() session.Mode {
	mode, _ := session.ParseMode(c.Mode)
	return mode
}

// SessionOptions builds session options for the named recording. When a
// database is configured recordings are kept there instead of under
// RecordingsDir.
func (c *Config) SessionOptions(name string) session.Options {
	opts := session.Options{
		Name:               name,
		Mode:               c.SessionMode(),
		Dir:                c.RecordingsDir,
		Match:              c.Match,
		Rewrites:           c.Rewrites,
		BinaryContentTypes: c.BinaryContentTypes,
	}
	if c.Database != "" {
		opts.Persister = recording.NewSQLitePersister(c.Database)
	}
	return opts
}

// LoggingConfig converts the log section. Call Validate first.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	if format, err := logging.ParseFormat(c.Log.Format); err == nil {
		cfg.Format = format
	}
	return cfg
}
