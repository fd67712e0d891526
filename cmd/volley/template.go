package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/har"
	"github.com/torosent/volley/internal/request"
)

// resolveTemplate builds the request template of the run. A template file or
// HAR entry is the base when configured; target, method, headers and body
// from the configuration are layered on top.
func resolveTemplate(cfg *config.Config) (request.Template, error) {
	var tmpl request.Template
	switch {
	case strings.TrimSpace(cfg.TemplateFile) != "":
		loaded, err := request.LoadFile(cfg.TemplateFile, cfg.TemplatePath)
		if err != nil {
			return request.Template{}, err
		}
		tmpl = loaded.Clone()
	case strings.TrimSpace(cfg.HARFile) != "":
		opts := har.DefaultOptions().WithFilter(config.ParseHARFilter(cfg.HARFilter))
		loaded, err := har.LoadTemplate(cfg.HARFile, opts, cfg.HAREntry)
		if err != nil {
			return request.Template{}, fmt.Errorf("har import: %w", err)
		}
		tmpl = loaded
	}

	if target := strings.TrimSpace(cfg.TargetURL); target != "" {
		tmpl.URL = target
	}
	if strings.TrimSpace(tmpl.Method) == "" || (cfg.Method != "" && cfg.Method != http.MethodGet) {
		tmpl.Method = cfg.Method
	}
	for _, h := range cfg.Headers {
		if !h.Enabled {
			tmpl.Headers = append(tmpl.Headers, h)
			continue
		}
		tmpl.SetHeader(h.Key, h.Value)
	}

	switch {
	case cfg.BodyFile != "":
		body, err := request.LoadBody(cfg.BodyFile)
		if err != nil {
			return request.Template{}, err
		}
		tmpl.Body = body
	case cfg.Body != "":
		tmpl.Body = cfg.Body
	}

	if strings.TrimSpace(tmpl.URL) == "" {
		return request.Template{}, fmt.Errorf("request template has no URL")
	}
	return tmpl, nil
}

func methodOf(tmpl request.Template) string {
	method := strings.ToUpper(strings.TrimSpace(tmpl.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}
