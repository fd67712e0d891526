package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{float64(2.5), "2.5"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if _, err := asString(map[string]interface{}{"a": 1}); err == nil {
		t.Error("asString(map) should fail")
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsIntRejectsFractions(t *testing.T) {
	if _, err := asInt(float64(2.5)); err == nil {
		t.Error("asInt(2.5) should fail")
	}
	if _, err := asInt([]interface{}{1}); err == nil {
		t.Error("asInt(list) should fail")
	}
}

func TestAsCount(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    int
		wantErr bool
	}{
		{name: "yaml int", input: 50, want: 50},
		{name: "json number", input: float64(4294967295), want: 4294967295},
		{name: "string", input: "7", want: 7},
		{name: "above uint32", input: float64(4294967296), wantErr: true},
		{name: "negative", input: -1, wantErr: true},
		{name: "fraction", input: float64(1.5), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asCount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("asCount(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("asCount(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyConfigSettingsRejectsOversizedRate(t *testing.T) {
	cfg := &Config{}
	err := applyConfigSettings(cfg, map[string]interface{}{"rate": float64(1 << 40)})
	if err == nil {
		t.Fatal("applyConfigSettings() should reject a rate above the uint32 range")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"1m", time.Minute},
		{10, 10 * time.Second},
		{float64(1.5), 1500 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"target":         "http://example.com",
		"method":         "POST",
		"rate":           10,
		"rounds":         "4",
		"round_interval": "500ms",
		"timeout":        "5s",
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
		},
		"har_filter": "host:example.com",
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.TargetURL != "http://example.com" {
		t.Errorf("TargetURL = %q, want http://example.com", cfg.TargetURL)
	}
	if cfg.Method != "POST" {
		t.Errorf("Method = %q, want POST", cfg.Method)
	}
	if cfg.Rate != 10 || cfg.Rounds != 4 {
		t.Errorf("Rate/Rounds = %d/%d, want 10/4", cfg.Rate, cfg.Rounds)
	}
	if cfg.RoundInterval != 500*time.Millisecond {
		t.Errorf("RoundInterval = %v, want 500ms", cfg.RoundInterval)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0].Key != "Content-Type" || cfg.Headers[0].Value != "application/json" || !cfg.Headers[0].Enabled {
		t.Errorf("Headers = %+v, want enabled Content-Type", cfg.Headers)
	}
	if cfg.HARFilter != "host:example.com" {
		t.Errorf("HARFilter = %q, want host:example.com", cfg.HARFilter)
	}
}

func TestParseHeadersList(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"key": "Accept", "value": "text/plain"},
		map[string]interface{}{"key": "X-Off", "value": "1", "enabled": false},
	}
	headers, err := parseHeaders(raw)
	if err != nil {
		t.Fatalf("parseHeaders() error = %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("len(headers) = %d, want 2", len(headers))
	}
	if !headers[0].Enabled || headers[0].Key != "Accept" {
		t.Errorf("headers[0] = %+v", headers[0])
	}
	if headers[1].Enabled {
		t.Errorf("headers[1] should be disabled: %+v", headers[1])
	}

	_, err = parseHeaders([]interface{}{map[string]interface{}{"value": "no key"}})
	if err == nil {
		t.Error("parseHeaders() with missing key should fail")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{
		Rate:   1,
		Method: "GET",
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"-r", "5",
		"-n", "3",
		"--round-interval=2s",
		"--method=PUT",
		"--header=X-Test=123",
		"--tracing-endpoint=localhost:4317",
		"--tracing-propagate=false",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Rate != 5 {
		t.Errorf("Rate = %d, want 5", cfg.Rate)
	}
	if cfg.Rounds != 3 {
		t.Errorf("Rounds = %d, want 3", cfg.Rounds)
	}
	if cfg.RoundInterval != 2*time.Second {
		t.Errorf("RoundInterval = %v, want 2s", cfg.RoundInterval)
	}
	if cfg.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", cfg.Method)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0].Value != "123" {
		t.Errorf("Headers = %+v, want X-Test=123", cfg.Headers)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Errorf("Tracing.Propagate = %v, want false", cfg.Tracing.Propagate)
	}
}

func TestApplyFlagOverridesRejectsBadHeader(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)
	if err := fs.Parse([]string{"--header=novalue"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyFlagOverrides(&Config{}, fs); err == nil {
		t.Fatal("applyFlagOverrides() error = nil, want key=value error")
	}
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader()
	args := []string{
		"--target=http://example.com",
		"--rate=2",
	}

	cfg, err := loader.Load(args)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "http://example.com" {
		t.Errorf("TargetURL = %q, want http://example.com", cfg.TargetURL)
	}
	if cfg.Rate != 2 {
		t.Errorf("Rate = %d, want 2", cfg.Rate)
	}
}

func TestParseHARFilter(t *testing.T) {
	hosts, methods := ParseHARFilter("host:api.example.com, cdn.example.com;method:GET,POST")
	if len(hosts) != 2 || hosts[1] != "cdn.example.com" {
		t.Errorf("hosts = %v", hosts)
	}
	if len(methods) != 2 || methods[0] != "GET" {
		t.Errorf("methods = %v", methods)
	}

	hosts, methods = ParseHARFilter("")
	if hosts != nil || methods != nil {
		t.Errorf("empty filter = %v %v, want nil", hosts, methods)
	}
}
