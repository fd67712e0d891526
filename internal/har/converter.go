// Package har imports request templates from HTTP Archive recordings.
package har

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/torosent/volley/internal/request"
)

var staticExtensions = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
	".woff", ".woff2", ".ttf", ".eot", ".ico", ".map",
}

// Headers that are recorded but must not be replayed verbatim. They are kept
// as disabled rows so the template still shows what the browser sent.
var disabledHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"content-length":      true,
}

// Convert turns HAR entries into request templates, applying opts filters.
func Convert(har *HAR, opts ConvertOptions) ([]request.Template, error) {
	if har == nil || har.Log == nil {
		return nil, fmt.Errorf("HAR is nil or has nil log")
	}

	var templates []request.Template
	for _, entry := range har.Log.Entries {
		if entry == nil || entry.Request == nil {
			continue
		}
		if !shouldIncludeEntry(entry.Request, opts) {
			continue
		}
		templates = append(templates, entryToTemplate(entry.Request, opts))
	}
	return templates, nil
}

// Select converts har and returns the template at position index of the
// filtered entries.
func Select(har *HAR, opts ConvertOptions, index int) (request.Template, error) {
	templates, err := Convert(har, opts)
	if err != nil {
		return request.Template{}, err
	}
	if len(templates) == 0 {
		return request.Template{}, ErrNoEntries
	}
	if index < 0 || index >= len(templates) {
		return request.Template{}, fmt.Errorf("har entry %d out of range (%d entries after filtering)", index, len(templates))
	}
	return templates[index], nil
}

// LoadTemplate parses the HAR file at path and selects one template.
func LoadTemplate(path string, opts ConvertOptions, index int) (request.Template, error) {
	h, err := ParseFile(path)
	if err != nil {
		return request.Template{}, err
	}
	return Select(h, opts, index)
}

func shouldIncludeEntry(req *Request, opts ConvertOptions) bool {
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return false
	}

	if len(opts.IncludeHosts) > 0 && !containsFold(opts.IncludeHosts, parsedURL.Host) {
		return false
	}
	if containsFold(opts.ExcludeHosts, parsedURL.Host) {
		return false
	}
	if len(opts.IncludeMethods) > 0 && !containsFold(opts.IncludeMethods, req.Method) {
		return false
	}
	if opts.ExcludeStatic && isStaticAsset(parsedURL.Path) {
		return false
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func entryToTemplate(req *Request, opts ConvertOptions) request.Template {
	tmpl := request.Template{
		Method: strings.ToUpper(req.Method),
		URL:    req.URL,
	}
	if parsedURL, err := url.Parse(req.URL); err == nil {
		tmpl.Name = parsedURL.Path
	}
	if opts.IncludeHeaders {
		tmpl.Headers = convertHeaders(req.Headers)
	}
	if req.PostData != nil {
		tmpl.Body = postBody(req.PostData)
	}
	return tmpl
}

func isStaticAsset(path string) bool {
	lowerPath := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}

// convertHeaders maps recorded headers to template rows. HTTP/2 pseudo
// headers and hop-by-hop headers are kept disabled.
func convertHeaders(headers []*Header) []request.Header {
	var out []request.Header
	for _, h := range headers {
		if h == nil || strings.TrimSpace(h.Name) == "" {
			continue
		}
		enabled := !strings.HasPrefix(h.Name, ":") && !disabledHeaders[strings.ToLower(h.Name)]
		out = append(out, request.Header{Enabled: enabled, Key: h.Name, Value: h.Value})
	}
	return out
}

// postBody prefers the recorded text and falls back to form-encoding params.
func postBody(pd *PostData) string {
	if pd.Text != "" {
		return pd.Text
	}
	if len(pd.Params) == 0 {
		return ""
	}
	values := url.Values{}
	for _, p := range pd.Params {
		if p == nil {
			continue
		}
		values.Add(p.Name, p.Value)
	}
	return values.Encode()
}
