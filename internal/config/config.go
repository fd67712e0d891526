package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/torosent/volley/internal/request"
)

// MaxTotalRequests caps rate*rounds; every planned request owns a result slot.
const MaxTotalRequests = 10_000_000

type Config struct {
	TargetURL      string           `mapstructure:"target"`
	Method         string           `mapstructure:"method"`
	Headers        []request.Header `mapstructure:"headers"`
	Body           string           `mapstructure:"body"`
	BodyFile       string           `mapstructure:"body_file"`
	TemplateFile   string           `mapstructure:"template_file"`
	TemplatePath   string           `mapstructure:"template_path"`
	HARFile        string           `mapstructure:"har_file"`
	HARFilter      string           `mapstructure:"har_filter"`
	HAREntry       int              `mapstructure:"har_entry"`
	Rate           int              `mapstructure:"rate"`
	Rounds         int              `mapstructure:"rounds"`
	RoundInterval  time.Duration    `mapstructure:"round_interval"`
	Timeout        time.Duration    `mapstructure:"timeout"`
	Insecure       bool             `mapstructure:"insecure"`
	SequenceHeader string           `mapstructure:"sequence_header"`
	JSONOutput     bool             `mapstructure:"json_output"`
	Dashboard      bool             `mapstructure:"dashboard"`
	LogErrors      bool             `mapstructure:"log_errors"`
	LogLevel       string           `mapstructure:"log_level"`
	HTMLOutput     string           `mapstructure:"html_output"`
	MetricsAddr    string           `mapstructure:"metrics_addr"`
	Thresholds     []string         `mapstructure:"thresholds"`
	Tracing        TracingConfig    `mapstructure:"tracing"`
	ConfigFile     string           `mapstructure:"-"`
}

// TotalRequests returns rate*rounds without overflow.
func (c Config) TotalRequests() uint64 {
	if c.Rate <= 0 || c.Rounds <= 0 {
		return 0
	}
	return uint64(c.Rate) * uint64(c.Rounds)
}

// TracingConfig configures OpenTelemetry export of per-request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured, directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to true when tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	if t.Propagate == nil {
		return true
	}
	return *t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.TargetURL) == "" &&
		strings.TrimSpace(c.TemplateFile) == "" &&
		strings.TrimSpace(c.HARFile) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}
	if strings.TrimSpace(c.TemplateFile) != "" && strings.TrimSpace(c.HARFile) != "" {
		issues = append(issues, "template and har are mutually exclusive")
	}
	if strings.TrimSpace(c.TemplatePath) != "" && strings.TrimSpace(c.TemplateFile) == "" {
		issues = append(issues, "template-path requires template")
	}
	if c.HAREntry < 0 {
		issues = append(issues, "har-entry must be >= 0")
	}

	if c.Rate < 1 {
		issues = append(issues, "rate must be >= 1")
	} else if uint64(c.Rate) > math.MaxUint32 {
		issues = append(issues, fmt.Sprintf("rate must be <= %d", uint64(math.MaxUint32)))
	}
	if c.Rounds < 1 {
		issues = append(issues, "rounds must be >= 1")
	} else if uint64(c.Rounds) > math.MaxUint32 {
		issues = append(issues, fmt.Sprintf("rounds must be <= %d", uint64(math.MaxUint32)))
	}
	if total := c.TotalRequests(); total > MaxTotalRequests {
		issues = append(issues, fmt.Sprintf("rate*rounds (%d) exceeds the limit of %d requests", total, MaxTotalRequests))
	}
	if c.RoundInterval <= 0 {
		issues = append(issues, "round-interval must be > 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			issues = append(issues, fmt.Sprintf("log-level: %v", err))
		}
	}
	for idx, h := range c.Headers {
		if h.Enabled && strings.TrimSpace(h.Key) == "" {
			issues = append(issues, fmt.Sprintf("headers[%d]: key cannot be empty", idx))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate configured (%d requests per round). Ensure you have authorization to test the target system.", c.Rate))
	}
	if c.Insecure {
		warnings = append(warnings, "WARNING: TLS certificate verification is DISABLED (--insecure). Man-in-the-middle attacks are possible.")
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
