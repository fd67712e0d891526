package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/volley/internal/request"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volley",
		Short:         "Send rate requests per round for a number of rounds and report latency",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request template flags
	flags.String("target", "", "Target URL to load test")
	flags.String("method", "GET", "HTTP method to use")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")
	flags.String("template", "", "Path to a request template file (JSON or YAML)")
	flags.String("template-path", "", "gjson path selecting one request inside the template file")
	flags.String("sequence-header", "", "Header that carries each request's sequence index")

	// Load control flags
	flags.IntP("rate", "r", 10, "Requests sent per round")
	flags.IntP("rounds", "n", 1, "Number of rounds")
	flags.Duration("round-interval", time.Second, "Minimum time between round starts")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Bool("insecure", false, "Skip TLS certificate verification")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'latency:p95 < 500')")

	// HAR import flags
	flags.String("har", "", "Path to HAR file to import the request from")
	flags.String("har-filter", "", "Filter HAR entries (e.g., 'host:example.com' or 'method:GET,POST')")
	flags.Int("har-entry", 0, "Index of the HAR entry to use after filtering")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for request spans (e.g. localhost:4317)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported in spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Use an insecure connection to the OTLP endpoint")
	flags.Bool("tracing-propagate", true, "Inject W3C trace context headers into requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		cfg.Body = ""
	}
	if fs.Changed("template") {
		val, err := fs.GetString("template")
		if err != nil {
			return err
		}
		cfg.TemplateFile = strings.TrimSpace(val)
	}
	if fs.Changed("template-path") {
		val, err := fs.GetString("template-path")
		if err != nil {
			return err
		}
		cfg.TemplatePath = strings.TrimSpace(val)
	}
	if fs.Changed("sequence-header") {
		val, err := fs.GetString("sequence-header")
		if err != nil {
			return err
		}
		cfg.SequenceHeader = strings.TrimSpace(val)
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("rounds") {
		val, err := fs.GetInt("rounds")
		if err != nil {
			return err
		}
		cfg.Rounds = val
	}
	if fs.Changed("round-interval") {
		val, err := fs.GetDuration("round-interval")
		if err != nil {
			return err
		}
		cfg.RoundInterval = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("insecure") {
		val, err := fs.GetBool("insecure")
		if err != nil {
			return err
		}
		cfg.Insecure = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	for _, entry := range vals {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("header must be in key=value format: %s", entry)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		cfg.Headers = request.UpsertHeader(cfg.Headers, key, strings.TrimSpace(parts[1]))
	}

	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if fs.Changed("har") {
		val, err := fs.GetString("har")
		if err != nil {
			return err
		}
		cfg.HARFile = strings.TrimSpace(val)
	}
	if fs.Changed("har-filter") {
		val, err := fs.GetString("har-filter")
		if err != nil {
			return err
		}
		cfg.HARFilter = strings.TrimSpace(val)
	}
	if fs.Changed("har-entry") {
		val, err := fs.GetInt("har-entry")
		if err != nil {
			return err
		}
		cfg.HAREntry = val
	}

	return applyTracingFlags(&cfg.Tracing, fs)
}

func applyTracingFlags(t *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		t.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		t.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		t.Insecure = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		t.Propagate = &val
	}
	return nil
}
