// Package request defines the resolved request template consumed by the load engine
// and helpers for loading templates from YAML or JSON files.
package request

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Header is a single request header row. Disabled rows are kept so that
// imported collections round-trip, but they are never sent.
type Header struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Key     string `json:"key" yaml:"key"`
	Value   string `json:"value" yaml:"value"`
}

// Template is a fully resolved request. Values are opaque strings; no
// placeholder syntax is interpreted here.
type Template struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Method  string   `json:"method" yaml:"method"`
	URL     string   `json:"url" yaml:"url"`
	Headers []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string   `json:"body,omitempty" yaml:"body,omitempty"`
}

// Clone returns a deep copy so callers can mutate headers freely.
func (t Template) Clone() Template {
	out := t
	if t.Headers != nil {
		out.Headers = make([]Header, len(t.Headers))
		copy(out.Headers, t.Headers)
	}
	return out
}

// EnabledHeaders returns the rows that will be applied to outgoing requests.
func (t Template) EnabledHeaders() []Header {
	var out []Header
	for _, h := range t.Headers {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

// SetHeader enables key with value, replacing any existing row with the same
// canonical key.
func (t *Template) SetHeader(key, value string) {
	t.Headers = UpsertHeader(t.Headers, key, value)
}

// UpsertHeader returns headers with key enabled and set to value.
func UpsertHeader(headers []Header, key, value string) []Header {
	canonical := http.CanonicalHeaderKey(strings.TrimSpace(key))
	for i := range headers {
		if http.CanonicalHeaderKey(strings.TrimSpace(headers[i].Key)) == canonical {
			headers[i] = Header{Enabled: true, Key: headers[i].Key, Value: value}
			return headers
		}
	}
	return append(headers, Header{Enabled: true, Key: key, Value: value})
}

// HeadersFromMap converts a plain key/value map into enabled header rows,
// sorted by key for stable ordering.
func HeadersFromMap(m map[string]string) []Header {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, Header{Enabled: true, Key: k, Value: m[k]})
	}
	return out
}

func (t Template) String() string {
	method := strings.ToUpper(strings.TrimSpace(t.Method))
	if method == "" {
		method = http.MethodGet
	}
	return fmt.Sprintf("%s %s", method, t.URL)
}
