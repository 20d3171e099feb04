// Package cli implements the cassette command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/cassette/pkg/cli/internal/output"
	"github.com/getmockd/cassette/pkg/config"
	"github.com/getmockd/cassette/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags holds the persistent flags shared by all subcommands.
type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// NewRootCommand builds the cassette command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "cassette",
		Short: "cassette records and replays HTTP traffic",
		Long: `cassette captures the HTTP traffic of a client into a HAR recording and
replays it later without the upstream service. Recordings, hand-written
overrides and an OpenAPI document can be served together as a mock server.

Configuration can be provided via flags, environment variables, or a
configuration file. By default, cassette looks for .cassette.yaml in the
working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "Path to config file (default: .cassette.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")

	root.AddCommand(
		newServeCmd(g),
		newProxyCmd(g),
		newInspectCmd(g),
		newVerifyCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// load reads the merged configuration, applies the persistent flags and
// the command's own flags through apply, validates the result and builds
// the logger.
func (g *globalFlags) load(cmd *cobra.Command, apply func(*config.Config) error) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Set("log.level", func(c *config.Config) { c.Log.Level = g.logLevel }, config.SourceFlag)
	}
	if flags.Changed("log-format") {
		cfg.Set("log.format", func(c *config.Config) { c.Log.Format = g.logFormat }, config.SourceFlag)
	}
	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	log := logging.New(logCfg)
	if cfg.ConfigFile != "" {
		log.Debug("loaded config file", "path", cfg.ConfigFile)
	}
	return cfg, log, nil
}

// printResult writes data as JSON when --json is set, otherwise calls textFn.
func (g *globalFlags) printResult(w io.Writer, data any, textFn func(io.Writer)) error {
	if g.jsonOutput {
		return output.JSON(w, data)
	}
	textFn(w)
	return nil
}
