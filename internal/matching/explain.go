package matching

import (
	"fmt"
	"strings"

	"github.com/getmockd/cassette/pkg/recording"
)

// Field names reported in a Mismatch.
const (
	FieldMethod       = "method"
	FieldURL          = "url"
	FieldScheme       = "scheme"
	FieldHost         = "host"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldBody         = "body"
	FieldHeaderPrefix = "header:"
)

// Mismatch describes one field in which a live request differs from a
// stored one.
type Mismatch struct {
	Field  string `json:"field"`
	Stored string `json:"stored"`
	Live   string `json:"live"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: stored %q, live %q", m.Field, m.Stored, m.Live)
}

// NearMiss is the stored interaction closest to a live request that did not
// match, with the fields that kept it from matching.
type NearMiss struct {
	Interaction *recording.Interaction `json:"-"`
	ID          string                 `json:"id"`
	Order       int                    `json:"order"`
	Mismatches  []Mismatch             `json:"mismatches"`
}

// Reason summarizes the mismatching fields.
func (n *NearMiss) Reason() string {
	if n == nil || len(n.Mismatches) == 0 {
		return ""
	}
	parts := make([]string, len(n.Mismatches))
	for i, mm := range n.Mismatches {
		parts[i] = mm.String()
	}
	return strings.Join(parts, "; ")
}

// Closest returns the candidate with the fewest mismatches against live.
// Ties go to the earliest candidate. It returns nil when candidates is empty.
func (m *Matcher) Closest(live *recording.Request, candidates []*recording.Interaction) *NearMiss {
	var best *NearMiss
	for _, ix := range candidates {
		mm := m.Explain(live, &ix.Request)
		if best == nil || len(mm) < len(best.Mismatches) {
			best = &NearMiss{Interaction: ix, ID: ix.ID, Order: ix.Order, Mismatches: mm}
		}
	}
	return best
}
