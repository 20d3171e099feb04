// Package transform holds the sanitizing steps applied to interactions
// right before they are persisted and right before a stored response is
// served again.
//
// Every step is a pure function: it returns a new value and never mutates
// its input. Steps are no-ops for interactions they do not apply to.
package transform

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/getmockd/cassette/pkg/recording"
)

// DefaultBinaryContentTypes are content-type substrings treated as binary
// serialization formats.
var DefaultBinaryContentTypes = []string{
	"msgpack",
	"octet-stream",
	"protobuf",
	"cbor",
	"x-binary",
	"image/",
	"audio/",
	"video/",
	"zip",
	"gzip",
}

// TransportHeaders are response headers that only describe the original
// transport hop. Stored bodies are always whole and decompressed, so
// serving them with these headers would corrupt the response.
var TransportHeaders = []string{
	"Transfer-Encoding",
	"Content-Encoding",
	"Content-Length",
}

// Rewrite maps an environment-specific address prefix to a portable one.
type Rewrite struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Step transforms an interaction before it is persisted.
type Step func(*recording.Interaction) *recording.Interaction

// Pipeline is the ordered set of persist-side steps plus the fixed
// replay-side step.
type Pipeline struct {
	persist []Step
}

// Options configures NewPipeline.
type Options struct {
	// BinaryContentTypes overrides DefaultBinaryContentTypes when non-empty.
	BinaryContentTypes []string
	// Rewrites is the address substitution table, first match wins.
	Rewrites []Rewrite
}

// NewPipeline builds the persist-side steps: binary body normalization,
// then address rewriting.
func NewPipeline(opts Options) *Pipeline {
	types := opts.BinaryContentTypes
	if len(types) == 0 {
		types = DefaultBinaryContentTypes
	}
	steps := []Step{NormalizeBinaryBodies(types)}
	if len(opts.Rewrites) > 0 {
		steps = append(steps, RewriteAddresses(opts.Rewrites))
	}
	return &Pipeline{persist: steps}
}

// Persist applies the persist-side steps in order.
func (p *Pipeline) Persist(ix *recording.Interaction) *recording.Interaction {
	for _, step := range p.persist {
		ix = step(ix)
	}
	return ix
}

// Replay applies the replay-side step to a stored response. Transport
// headers are stripped unconditionally.
func (p *Pipeline) Replay(resp recording.Response) recording.Response {
	return StripTransportHeaders(resp)
}

// NormalizeBinaryBodies base64-encodes identity bodies that are declared
// binary by content type, or that are not valid UTF-8 and so cannot live in
// a text file. Bodies already tagged base64 are left alone, which makes the
// step idempotent.
func NormalizeBinaryBodies(binaryTypes []string) Step {
	return func(ix *recording.Interaction) *recording.Interaction {
		req := normalizeBody(ix.Request.Body, ix.Request.Header.Get("Content-Type"), binaryTypes)
		resp := normalizeBody(ix.Response.Body, ix.Response.Header.Get("Content-Type"), binaryTypes)
		if req == ix.Request.Body && resp == ix.Response.Body {
			return ix
		}
		out := ix.Clone()
		out.Request.Body = req
		out.Response.Body = resp
		return out
	}
}

func normalizeBody(b recording.Body, contentType string, binaryTypes []string) recording.Body {
	if b.IsBase64() {
		return b
	}
	if b.Encoding == "" {
		b.Encoding = recording.EncodingIdentity
	}
	if b.Empty() {
		return b
	}
	if IsBinaryContentType(contentType, binaryTypes) || !utf8.ValidString(b.Text) {
		b.Text = base64.StdEncoding.EncodeToString([]byte(b.Text))
		b.Encoding = recording.EncodingBase64
	}
	return b
}

// IsBinaryContentType reports whether contentType names one of binaryTypes.
func IsBinaryContentType(contentType string, binaryTypes []string) bool {
	if contentType == "" {
		return false
	}
	ct := strings.ToLower(contentType)
	for _, t := range binaryTypes {
		if t != "" && strings.Contains(ct, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// RewriteAddresses replaces a leading environment address in the request
// URL using the first matching entry of table.
func RewriteAddresses(table []Rewrite) Step {
	return func(ix *recording.Interaction) *recording.Interaction {
		rewritten, ok := RewriteURL(ix.Request.URL, table)
		if !ok {
			return ix
		}
		out := ix.Clone()
		out.Request.URL = rewritten
		return out
	}
}

// RewriteURL applies the first matching rewrite to rawURL. A rule matches
// when rawURL starts with From and the next character ends the authority
// or path segment, so "http://localhost:4001" never matches
// "http://localhost:40010".
func RewriteURL(rawURL string, table []Rewrite) (string, bool) {
	for _, rw := range table {
		if rw.From == "" || !strings.HasPrefix(rawURL, rw.From) {
			continue
		}
		rest := rawURL[len(rw.From):]
		if rest != "" && !strings.HasSuffix(rw.From, "/") && !strings.ContainsRune("/?#", rune(rest[0])) {
			continue
		}
		return rw.To + rest, true
	}
	return rawURL, false
}

// StripTransportHeaders removes TransportHeaders from a stored response.
func StripTransportHeaders(resp recording.Response) recording.Response {
	if !hasAny(resp, TransportHeaders) {
		return resp
	}
	resp.Header = resp.Header.Without(TransportHeaders...)
	return resp
}

func hasAny(resp recording.Response, names []string) bool {
	for _, n := range names {
		if resp.Header.Has(n) {
			return true
		}
	}
	return false
}
