package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/getmockd/cassette/pkg/cli/internal/output"
	"github.com/getmockd/cassette/pkg/recording"
)

// InspectEntry is one row of `cassette inspect`.
type InspectEntry struct {
	Order      int    `json:"order"`
	ID         string `json:"id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int    `json:"status"`
	Encoding   string `json:"encoding"`
	DurationMs int64  `json:"durationMs"`
}

// InspectOutput is the JSON form of `cassette inspect`.
type InspectOutput struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Entries []InspectEntry `json:"entries"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <recording.har>",
		Short: "List the interactions of a recording",
		Long: `List the interactions of a recording file in persisted order with their
method, URL, response status and response body encoding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			rec, err := recording.LoadFile(path, recordingNameFromPath(path))
			if err != nil {
				return err
			}

			out := InspectOutput{Name: rec.Name, Path: path, Entries: make([]InspectEntry, 0, len(rec.Interactions))}
			for _, ix := range rec.Interactions {
				enc := ix.Response.Body.Encoding
				if enc == "" {
					enc = recording.EncodingIdentity
				}
				out.Entries = append(out.Entries, InspectEntry{
					Order:      ix.Order,
					ID:         ix.ID,
					Method:     ix.Request.Method,
					URL:        ix.Request.URL,
					Status:     ix.Response.Status,
					Encoding:   string(enc),
					DurationMs: ix.Duration.Milliseconds(),
				})
			}

			return g.printResult(cmd.OutOrStdout(), out, func(w io.Writer) {
				if len(out.Entries) == 0 {
					fmt.Fprintf(w, "%s: no interactions\n", path)
					return
				}
				tw := output.Table(w)
				fmt.Fprintln(tw, "ORDER\tMETHOD\tURL\tSTATUS\tENCODING")
				for _, e := range out.Entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", e.Order, e.Method, e.URL, e.Status, e.Encoding)
				}
				_ = tw.Flush()
			})
		},
	}
}

// recordingNameFromPath maps <dir>/<name>/recording.har to name.
func recordingNameFromPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}
