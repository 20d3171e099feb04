package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/getmockd/cassette/pkg/cli/internal/parse"
	"github.com/getmockd/cassette/pkg/config"
	"github.com/getmockd/cassette/pkg/proxy"
	"github.com/getmockd/cassette/pkg/session"
)

type proxyFlags struct {
	port          int
	upstream      string
	name          string
	mode          string
	recordingsDir string
	database      string
	include       []string
	exclude       []string
	rewrites      []string
}

func newProxyCmd(g *globalFlags) *cobra.Command {
	f := &proxyFlags{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run a recording reverse proxy in front of an upstream",
		Long: `Run a reverse proxy that forwards every request to the upstream through a
capture/replay session. In record modes the traffic is written to
<recordings-dir>/<name>/recording.har when the proxy stops; in replay mode
requests are answered from that file and the upstream is never contacted.`,
		Example: `  # Record algod traffic
  cassette proxy --upstream http://127.0.0.1:4001 --name algod --mode record-new

  # Replay it, keeping health checks live
  cassette proxy --upstream http://127.0.0.1:4001 --name algod --exclude '/health'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd, func(cfg *config.Config) error {
				return f.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			if cfg.Proxy.Upstream == "" {
				return errors.New("an upstream is required (--upstream or proxy.upstream)")
			}

			name, err := sessionName(cfg.Proxy)
			if err != nil {
				return err
			}
			opts := cfg.SessionOptions(name)
			opts.Logger = log

			ctx := cmd.Context()
			sess, err := session.Start(ctx, opts)
			if err != nil {
				return err
			}

			p, err := proxy.New(proxy.Options{
				Upstream: cfg.Proxy.Upstream,
				Session:  sess,
				Filter: &proxy.FilterConfig{
					IncludePaths: cfg.Proxy.Include,
					ExcludePaths: cfg.Proxy.Exclude,
				},
				Logger: log,
			})
			if err != nil {
				_ = sess.Stop(context.WithoutCancel(ctx))
				return err
			}

			log.Info("proxying", "upstream", cfg.Proxy.Upstream, "session", sess.Name(), "mode", sess.Mode().String())
			addr := fmt.Sprintf(":%d", cfg.Proxy.Port)
			return runServer(ctx, addr, p, log, func(ctx context.Context) error {
				if err := sess.Stop(ctx); err != nil {
					return fmt.Errorf("failed to save recording: %w", err)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.port, "port", "p", config.DefaultProxyPort, "Proxy listen port")
	flags.StringVarP(&f.upstream, "upstream", "u", "", "Upstream base URL (e.g. http://127.0.0.1:4001)")
	flags.StringVarP(&f.name, "name", "n", "", "Recording name (default: upstream host)")
	flags.StringVarP(&f.mode, "mode", "m", "", "Session mode (record-new, record-overwrite, replay)")
	flags.StringVarP(&f.recordingsDir, "recordings-dir", "d", "", "Recordings directory")
	flags.StringVar(&f.database, "database", "", "SQLite database to keep recordings in instead of --recordings-dir")
	flags.StringSliceVar(&f.include, "include", nil, "Path patterns to record (default: all)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "Path patterns to forward without recording")
	flags.StringArrayVar(&f.rewrites, "rewrite", nil, "Address rewrite as from=to (repeatable)")
	return cmd
}

func (f *proxyFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Set("proxy.port", func(c *config.Config) { c.Proxy.Port = f.port }, config.SourceFlag)
	}
	if flags.Changed("upstream") {
		cfg.Set("proxy.upstream", func(c *config.Config) { c.Proxy.Upstream = f.upstream }, config.SourceFlag)
	}
	if flags.Changed("name") {
		cfg.Set("proxy.name", func(c *config.Config) { c.Proxy.Name = f.name }, config.SourceFlag)
	}
	if flags.Changed("mode") {
		cfg.Set("mode", func(c *config.Config) { c.Mode = f.mode }, config.SourceFlag)
	}
	if flags.Changed("recordings-dir") {
		cfg.Set("recordingsDir", func(c *config.Config) { c.RecordingsDir = f.recordingsDir }, config.SourceFlag)
	}
	if flags.Changed("database") {
		cfg.Set("database", func(c *config.Config) { c.Database = f.database }, config.SourceFlag)
	}
	if flags.Changed("include") {
		cfg.Set("proxy.include", func(c *config.Config) { c.Proxy.Include = f.include }, config.SourceFlag)
	}
	if flags.Changed("exclude") {
		cfg.Set("proxy.exclude", func(c *config.Config) { c.Proxy.Exclude = f.exclude }, config.SourceFlag)
	}
	if flags.Changed("rewrite") {
		rewrites, err := parse.Rewrites(f.rewrites)
		if err != nil {
			return err
		}
		cfg.Set("rewrites", func(c *config.Config) { c.Rewrites = rewrites }, config.SourceFlag)
	}
	return nil
}

// sessionName returns the configured recording name or the upstream host.
func sessionName(pc config.ProxyConfig) (string, error) {
	if pc.Name != "" {
		return pc.Name, nil
	}
	u, err := url.Parse(pc.Upstream)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("cannot derive a recording name from upstream %q; set --name", pc.Upstream)
	}
	return u.Hostname(), nil
}
