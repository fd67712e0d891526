package config_test

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/request"
)

func headerValue(headers []request.Header, key string) (string, bool) {
	for _, h := range headers {
		if http.CanonicalHeaderKey(h.Key) == http.CanonicalHeaderKey(key) {
			return h.Value, h.Enabled
		}
	}
	return "", false
}

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"--target", "http://localhost:8080"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "http://localhost:8080" {
		t.Errorf("TargetURL = %q, want http://localhost:8080", cfg.TargetURL)
	}
	if cfg.Method != "GET" {
		t.Errorf("Method = %q, want GET", cfg.Method)
	}
	if cfg.Rate != 10 {
		t.Errorf("Rate = %d, want 10", cfg.Rate)
	}
	if cfg.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", cfg.Rounds)
	}
	if cfg.RoundInterval != time.Second {
		t.Errorf("RoundInterval = %s, want 1s", cfg.RoundInterval)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if len(cfg.Headers) != 0 {
		t.Errorf("Headers len = %d, want 0", len(cfg.Headers))
	}
	if cfg.Tracing.Protocol != "grpc" || cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing = %+v, want grpc protocol with sample rate 1", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadNoArgsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(nil) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "https://api.example.com",
		"method": "PUT",
		"headers": {"Content-Type": "application/json"},
		"body": "{\"foo\":\"bar\"}",
		"rate": 100,
		"rounds": 5,
		"round_interval": "250ms",
		"timeout": "45s",
		"sequence_header": "X-Seq",
		"jsonOutput": true
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--method", "PATCH", "--header", "Authorization=Bearer token"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://api.example.com" {
		t.Errorf("TargetURL = %q, want https://api.example.com", cfg.TargetURL)
	}
	if cfg.Method != "PATCH" {
		t.Errorf("Method = %q, want PATCH", cfg.Method)
	}
	if v, _ := headerValue(cfg.Headers, "Content-Type"); v != "application/json" {
		t.Errorf("Headers[Content-Type] = %q, want application/json", v)
	}
	if v, _ := headerValue(cfg.Headers, "Authorization"); v != "Bearer token" {
		t.Errorf("Headers[Authorization] = %q, want Bearer token", v)
	}
	if cfg.Body != `{"foo":"bar"}` {
		t.Errorf("Body = %q, want {\"foo\":\"bar\"}", cfg.Body)
	}
	if cfg.Rate != 100 {
		t.Errorf("Rate = %d, want 100", cfg.Rate)
	}
	if cfg.Rounds != 5 {
		t.Errorf("Rounds = %d, want 5", cfg.Rounds)
	}
	if cfg.RoundInterval != 250*time.Millisecond {
		t.Errorf("RoundInterval = %s, want 250ms", cfg.RoundInterval)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.SequenceHeader != "X-Seq" {
		t.Errorf("SequenceHeader = %q, want X-Seq", cfg.SequenceHeader)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if got := cfg.TotalRequests(); got != 500 {
		t.Errorf("TotalRequests() = %d, want 500", got)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"target: https://service.example.com",
		"method: post",
		"headers:",
		"  - key: X-Env",
		"    value: staging",
		"  - key: X-Debug",
		"    value: \"1\"",
		"    enabled: false",
		"rate: 20",
		"rounds: 3",
		"round_interval: 2s",
		"timeout: 15s",
		"thresholds:",
		"  - \"latency:p95 < 500\"",
		"tracing:",
		"  endpoint: localhost:4318",
		"  protocol: http",
		"  sample_rate: 0.5",
		"  propagate: false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://service.example.com" {
		t.Errorf("TargetURL = %q, want https://service.example.com", cfg.TargetURL)
	}
	if cfg.Method != "POST" {
		t.Errorf("Method = %q, want POST", cfg.Method)
	}
	if v, enabled := headerValue(cfg.Headers, "X-Env"); v != "staging" || !enabled {
		t.Errorf("Headers[X-Env] = %q enabled=%v, want staging enabled", v, enabled)
	}
	if v, enabled := headerValue(cfg.Headers, "X-Debug"); v != "1" || enabled {
		t.Errorf("Headers[X-Debug] = %q enabled=%v, want 1 disabled", v, enabled)
	}
	if cfg.Rate != 20 || cfg.Rounds != 3 {
		t.Errorf("Rate/Rounds = %d/%d, want 20/3", cfg.Rate, cfg.Rounds)
	}
	if cfg.RoundInterval != 2*time.Second {
		t.Errorf("RoundInterval = %s, want 2s", cfg.RoundInterval)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.Timeout)
	}
	if len(cfg.Thresholds) != 1 || cfg.Thresholds[0] != "latency:p95 < 500" {
		t.Errorf("Thresholds = %v, want [latency:p95 < 500]", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "localhost:4318" || cfg.Tracing.Protocol != "http" {
		t.Errorf("Tracing = %+v, want http exporter at localhost:4318", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing.SampleRate = %g, want 0.5", cfg.Tracing.SampleRate)
	}
	if cfg.Tracing.ShouldPropagate() {
		t.Errorf("ShouldPropagate() = true, want false")
	}
}

func TestFlagBodyOverridesConfigBodyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"bodyFile":"payload.json"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--body", "inline"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Body != "inline" {
		t.Errorf("Body = %q, want inline", cfg.Body)
	}
	if cfg.BodyFile != "" {
		t.Errorf("BodyFile = %q, want empty", cfg.BodyFile)
	}
}

func TestFlagBodyFileOverridesConfigBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"body":"inline-config"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--body-file", "payload.txt"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BodyFile != "payload.txt" {
		t.Errorf("BodyFile = %q, want payload.txt", cfg.BodyFile)
	}
	if cfg.Body != "" {
		t.Errorf("Body = %q, want empty", cfg.Body)
	}
}

func TestLoadMissingHARFile(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--har", filepath.Join(t.TempDir(), "missing.har")})
	if err == nil {
		t.Fatal("Load() error = nil, want missing HAR error")
	}
}

func validConfig() config.Config {
	return config.Config{
		TargetURL:     "https://example.com",
		Method:        "GET",
		Rate:          5,
		Rounds:        2,
		RoundInterval: time.Second,
		Timeout:       time.Second,
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{
			name:   "missing target",
			mutate: func(c *config.Config) { c.TargetURL = "" },
			want:   []string{"target"},
		},
		{
			name: "non-positive values",
			mutate: func(c *config.Config) {
				c.Rate = 0
				c.Rounds = -1
				c.RoundInterval = 0
				c.Timeout = -1
			},
			want: []string{"rate", "rounds", "round-interval", "timeout"},
		},
		{
			name: "total over limit",
			mutate: func(c *config.Config) {
				c.Rate = 100_000
				c.Rounds = 1_000
			},
			want: []string{"exceeds the limit"},
		},
		{
			name: "body conflict",
			mutate: func(c *config.Config) {
				c.Body = "inline"
				c.BodyFile = "payload.json"
			},
			want: []string{"body"},
		},
		{
			name: "template and har",
			mutate: func(c *config.Config) {
				c.TemplateFile = "req.yaml"
				c.HARFile = "capture.har"
			},
			want: []string{"mutually exclusive"},
		},
		{
			name:   "template path without template",
			mutate: func(c *config.Config) { c.TemplatePath = "requests.0" },
			want:   []string{"template-path"},
		},
		{
			name: "dashboard and json",
			mutate: func(c *config.Config) {
				c.Dashboard = true
				c.JSONOutput = true
			},
			want: []string{"dashboard"},
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.LogLevel = "loud" },
			want:   []string{"log-level"},
		},
		{
			name: "empty header key",
			mutate: func(c *config.Config) {
				c.Headers = []request.Header{{Enabled: true, Key: " ", Value: "x"}}
			},
			want: []string{"headers[0]"},
		},
		{
			name: "tracing",
			mutate: func(c *config.Config) {
				c.Tracing = config.TracingConfig{Protocol: "udp", SampleRate: 2}
			},
			want: []string{"protocol", "sample_rate"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error type = %T, want ValidationError", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestConfigValidationAllowsDisabledEmptyHeader(t *testing.T) {
	cfg := validConfig()
	cfg.Headers = []request.Header{{Enabled: false, Key: "", Value: "ignored"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTracingShouldPropagate(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	off := false

	if (config.TracingConfig{}).ShouldPropagate() {
		t.Error("disabled tracing should not propagate")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).ShouldPropagate() {
		t.Error("enabled tracing should propagate by default")
	}
	if (config.TracingConfig{Endpoint: "localhost:4317", Propagate: &off}).ShouldPropagate() {
		t.Error("explicit propagate=false should win")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	if !(config.TracingConfig{}).Enabled() {
		t.Error("OTEL_EXPORTER_OTLP_ENDPOINT should enable tracing")
	}
}
