package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/getmockd/cassette/pkg/config"
	"github.com/getmockd/cassette/pkg/resolver"
)

type serveFlags struct {
	port       int
	spec       string
	custom     string
	recordings []string
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		Long: `Start a mock server that answers every request from three layers,
consulted in order: hand-written overrides (--custom), recorded
interactions (--recordings) and an OpenAPI document (--spec).
The first layer with a matching handler answers; unhandled requests
get a 404.`,
		Example: `  # Serve recordings with an OpenAPI fallback
  cassette serve --recordings 'testdata/recordings/**/recording.har' --spec algod.oas3.yml

  # Put overrides on top
  cassette serve --custom overrides.yaml --recordings 'recordings/*/recording.har'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd, func(cfg *config.Config) error {
				flags := cmd.Flags()
				if flags.Changed("port") {
					cfg.Set("server.port", func(c *config.Config) { c.Server.Port = f.port }, config.SourceFlag)
				}
				if flags.Changed("spec") {
					cfg.Set("server.spec", func(c *config.Config) { c.Server.Spec = f.spec }, config.SourceFlag)
				}
				if flags.Changed("custom") {
					cfg.Set("server.custom", func(c *config.Config) { c.Server.Custom = f.custom }, config.SourceFlag)
				}
				if flags.Changed("recordings") {
					cfg.Set("server.recordings", func(c *config.Config) { c.Server.Recordings = f.recordings }, config.SourceFlag)
				}
				return nil
			})
			if err != nil {
				return err
			}

			r, err := buildResolver(cmd.Context(), cfg.Server, log)
			if err != nil {
				return err
			}
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			return runServer(cmd.Context(), addr, resolver.NewServer(r, log), log, nil)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultServerPort, "Mock server port")
	cmd.Flags().StringVar(&f.spec, "spec", "", "OpenAPI document for the baseline layer")
	cmd.Flags().StringVar(&f.custom, "custom", "", "YAML file of override handlers")
	cmd.Flags().StringSliceVar(&f.recordings, "recordings", nil, "Glob patterns of recording files (repeatable)")
	return cmd
}

// buildResolver loads every configured layer. Layers are assembled once;
// files changed afterwards are not picked up.
func buildResolver(ctx context.Context, sc config.ServerConfig, log *slog.Logger) (*resolver.Resolver, error) {
	var custom, recorded, baseline []resolver.Candidate
	var err error

	if sc.Custom != "" {
		custom, err = resolver.LoadCustom(sc.Custom)
		if err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	if len(sc.Recordings) > 0 {
		match := resolver.DefaultRecordedMatch()
		if sc.Match != nil {
			match = *sc.Match
		}
		var files []string
		recorded, files, err = resolver.LoadRecordings(sc.Recordings, match)
		if err != nil {
			return nil, fmt.Errorf("failed to load recordings: %w", err)
		}
		if len(files) == 0 {
			log.Warn("no recording files matched", "patterns", sc.Recordings)
		}
		for _, path := range files {
			log.Debug("loaded recording", "path", path)
		}
	}

	if sc.Spec != "" {
		baseline, err = resolver.LoadOpenAPI(ctx, sc.Spec)
		if err != nil {
			return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
		}
	}

	r := resolver.New(custom, recorded, baseline)
	counts := r.Counts()
	log.Info("resolver ready",
		"custom", counts[resolver.LayerCustom],
		"recorded", counts[resolver.LayerRecorded],
		"baseline", counts[resolver.LayerBaseline],
	)
	return r, nil
}
