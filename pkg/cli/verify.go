package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/cassette/pkg/recording"
)

// VerifyResult is the outcome for one file of `cassette verify`.
type VerifyResult struct {
	Path         string `json:"path"`
	OK           bool   `json:"ok"`
	Interactions int    `json:"interactions"`
	Error        string `json:"error,omitempty"`
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <recording.har>...",
		Short: "Check that recording files load and validate",
		Long: `Load each recording file and validate it against the recording schema.
Returns exit code 0 when every file is valid and exit code 1 otherwise,
suitable for CI scripts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]VerifyResult, 0, len(args))
			failed := 0
			for _, path := range args {
				res := VerifyResult{Path: path, OK: true}
				rec, err := recording.LoadFile(path, recordingNameFromPath(path))
				if err != nil {
					res.OK = false
					res.Error = err.Error()
					failed++
				} else {
					res.Interactions = len(rec.Interactions)
				}
				results = append(results, res)
			}

			if err := g.printResult(cmd.OutOrStdout(), results, func(w io.Writer) {
				for _, r := range results {
					if r.OK {
						fmt.Fprintf(w, "ok    %s (%d interactions)\n", r.Path, r.Interactions)
					} else {
						fmt.Fprintf(w, "FAIL  %s: %s\n", r.Path, r.Error)
					}
				}
			}); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d recordings failed verification", failed, len(results))
			}
			return nil
		},
	}
}
