// Package header provides an ordered, case-insensitive HTTP header multimap.
//
// Header names compare case-insensitively everywhere: lookup, deletion,
// equality and subset checks. Values of one name keep their relative order,
// which is significant; the order between different names is not.
package header

import (
	"net/http"
	"sort"
	"strings"
)

// Field is a single header line.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Header is an ordered list of header fields with case-insensitive names.
// The zero value is an empty header ready to use.
type Header []Field

// FromHTTP converts a net/http header map. Names are sorted so the result
// is deterministic; values of each name keep their order.
func FromHTTP(h http.Header) Header {
	if len(h) == 0 {
		return Header{}
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Header, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Field{Name: name, Value: v})
		}
	}
	return out
}

// HTTP converts the header into a net/http header map.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out.Add(f.Name, f.Value)
	}
	return out
}

// Get returns the first value for name, or "" if absent.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns all values for name in order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether at least one field named name exists.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Set replaces every field named name with a single field.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every field whose name matches one of names.
func (h *Header) Del(names ...string) {
	*h = h.Without(names...)
}

// Without returns a copy of h minus the fields named in names.
// The receiver is not modified.
func (h Header) Without(names ...string) Header {
	out := make(Header, 0, len(h))
	for _, f := range h {
		if !containsFold(names, f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}

// Names returns the distinct lower-cased names in sorted order.
func (h Header) Names() []string {
	idx := h.index()
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of fields.
func (h Header) Len() int { return len(h) }

// Equal reports whether h and o hold the same names with the same values
// in the same per-name order.
func (h Header) Equal(o Header) bool {
	a, b := h.index(), o.index()
	if len(a) != len(b) {
		return false
	}
	for name, av := range a {
		if !equalValues(av, b[name]) {
			return false
		}
	}
	return true
}

// Contains reports whether every name in sub is present in h with exactly
// the same values.
func (h Header) Contains(sub Header) bool {
	a := h.index()
	for name, sv := range sub.index() {
		if !equalValues(a[name], sv) {
			return false
		}
	}
	return true
}

func (h Header) index() map[string][]string {
	idx := make(map[string][]string, len(h))
	for _, f := range h {
		key := strings.ToLower(f.Name)
		idx[key] = append(idx[key], f.Value)
	}
	return idx
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
