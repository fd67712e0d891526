package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/torosent/volley/internal/request"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodConnect: {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
	http.MethodPatch:   {},
}

// BuilderOptions tune request construction.
type BuilderOptions struct {
	// SequenceHeader, when set, names a header carrying the sequence index.
	SequenceHeader string
}

// RequestBuilder turns a resolved template into *http.Request values. The
// template is validated once; Build returns the same failure for every index.
type RequestBuilder struct {
	method  string
	target  *url.URL
	headers http.Header
	host    string
	body    []byte
	seqKey  string
	err     error
}

func NewRequestBuilder(tmpl request.Template, opts BuilderOptions) *RequestBuilder {
	b := &RequestBuilder{}

	method := strings.ToUpper(strings.TrimSpace(tmpl.Method))
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := allowedMethods[method]; !ok {
		b.err = fmt.Errorf("%w: %q", ErrUnknownMethod, tmpl.Method)
		return b
	}
	b.method = method

	target, err := parseTarget(tmpl.URL)
	if err != nil {
		b.err = err
		return b
	}
	b.target = target

	headers := http.Header{}
	for _, h := range tmpl.EnabledHeaders() {
		key := strings.TrimSpace(h.Key)
		if key == "" || !httpguts.ValidHeaderFieldName(key) {
			b.err = fmt.Errorf("%w: key %q", ErrInvalidHeader, h.Key)
			return b
		}
		canonicalKey := http.CanonicalHeaderKey(key)
		if strings.ContainsAny(h.Value, "\r\n") || !httpguts.ValidHeaderFieldValue(h.Value) {
			b.err = fmt.Errorf("%w: value for %s", ErrInvalidHeader, canonicalKey)
			return b
		}
		if canonicalKey == "Host" {
			b.host = h.Value
			continue
		}
		headers.Add(canonicalKey, h.Value)
	}
	b.headers = headers

	if seq := strings.TrimSpace(opts.SequenceHeader); seq != "" {
		if !httpguts.ValidHeaderFieldName(seq) {
			b.err = fmt.Errorf("%w: sequence header %q", ErrInvalidHeader, opts.SequenceHeader)
			return b
		}
		b.seqKey = http.CanonicalHeaderKey(seq)
	}

	if tmpl.Body != "" {
		b.body = []byte(tmpl.Body)
	}
	return b
}

func parseTarget(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrMalformedURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrMalformedURL, trimmed)
	}
	return u, nil
}

// Err returns the template validation error, if any.
func (b *RequestBuilder) Err() error {
	if b == nil {
		return fmt.Errorf("%w: builder is nil", ErrMalformedURL)
	}
	return b.err
}

// Endpoint returns a short "METHOD path" label used for spans and logs.
func (b *RequestBuilder) Endpoint() string {
	if b == nil || b.target == nil {
		return ""
	}
	path := b.target.Path
	if path == "" {
		path = "/"
	}
	return b.method + " " + path
}

// BodySize returns the number of body bytes attached to every request.
func (b *RequestBuilder) BodySize() int {
	if b == nil {
		return 0
	}
	return len(b.body)
}

// Build creates the request for sequence index.
func (b *RequestBuilder) Build(ctx context.Context, index int) (*http.Request, error) {
	if err := b.Err(); err != nil {
		return nil, &BuildError{Index: index, Err: err}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if len(b.body) > 0 {
		body = bytes.NewReader(b.body)
	}
	req, err := http.NewRequestWithContext(ctx, b.method, b.target.String(), body)
	if err != nil {
		return nil, &BuildError{Index: index, Err: err}
	}

	req.Header = b.headers.Clone()
	if b.host != "" {
		req.Host = b.host
	}
	if b.seqKey != "" {
		req.Header.Set(b.seqKey, strconv.Itoa(index))
	}

	if len(b.body) > 0 {
		data := b.body
		req.ContentLength = int64(len(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	return req, nil
}
