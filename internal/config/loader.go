package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Method:        "GET",
		Rate:          10,
		Rounds:        1,
		RoundInterval: time.Second,
		Timeout:       30 * time.Second,
		LogLevel:      "info",
		ConfigFile:    configPath,
		Tracing:       TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)

	if err := checkHARFile(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := parseHeaders(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		cfg.Headers = hdrs
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "bodyfile", "body_file", "body-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("bodyFile: %w", err)
		}
		cfg.BodyFile = val
	}

	if raw, ok := lookupSetting(settings, "templatefile", "template_file", "template-file", "template"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("templateFile: %w", err)
		}
		cfg.TemplateFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "templatepath", "template_path", "template-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("templatePath: %w", err)
		}
		cfg.TemplatePath = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "sequenceheader", "sequence_header", "sequence-header"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("sequenceHeader: %w", err)
		}
		cfg.SequenceHeader = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "rate", "reqs"); ok {
		val, err := asCount(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "rounds", "round"); ok {
		val, err := asCount(raw)
		if err != nil {
			return fmt.Errorf("rounds: %w", err)
		}
		cfg.Rounds = val
	}

	if raw, ok := lookupSetting(settings, "roundinterval", "round_interval", "round-interval"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("roundInterval: %w", err)
		}
		cfg.RoundInterval = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("logLevel: %w", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "metricsaddr", "metrics_addr", "metrics-addr"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("metricsAddr: %w", err)
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "harfile", "har_file", "har-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("harFile: %w", err)
		}
		cfg.HARFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "harfilter", "har_filter", "har-filter"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("harFilter: %w", err)
		}
		cfg.HARFilter = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "harentry", "har_entry", "har-entry"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("harEntry: %w", err)
		}
		cfg.HAREntry = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := asSettings(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tracing := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}
	return tracing, nil
}

// ParseHARFilter parses a HAR filter string into host and method lists.
// Format examples:
//   - "host:example.com"
//   - "host:api.example.com,cdn.example.com"
//   - "method:GET,POST"
//   - "host:example.com;method:GET,POST"
func ParseHARFilter(filter string) (hosts, methods []string) {
	if filter == "" {
		return nil, nil
	}

	for _, part := range strings.Split(filter, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.ToLower(kv[0]))
		values := strings.Split(strings.TrimSpace(kv[1]), ",")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}

		switch key {
		case "host":
			hosts = values
		case "method":
			methods = values
		}
	}
	return hosts, methods
}

// checkHARFile verifies the HAR file is readable. Conversion into a request
// template happens in the command layer.
func checkHARFile(cfg *Config) error {
	if strings.TrimSpace(cfg.HARFile) == "" {
		return nil
	}
	info, err := os.Stat(cfg.HARFile)
	if err != nil {
		return fmt.Errorf("failed to open HAR file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("HAR file %q is a directory", cfg.HARFile)
	}

	fmt.Fprintln(os.Stderr, "WARNING: HAR file may contain sensitive data (cookies, auth tokens). Review the request before use in production.")
	return nil
}
