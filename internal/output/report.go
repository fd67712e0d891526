package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if stats.Cancelled {
		fmt.Fprintln(w, "Run cancelled before all rounds were sent.")
	}
	fmt.Fprintf(w, "Planned Requests:  %d\n", stats.Total)
	fmt.Fprintf(w, "Completed:         %d\n", stats.Count)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Errors:            %d (transport %d, server %d)\n", stats.ErrorCount, stats.TransportErrors, stats.ServerErrors)
	fmt.Fprintf(w, "Error Rate:        %.2f%%\n", stats.ErrorRate*100)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintf(w, "Data Sent:         %s\n", FormatBytes(stats.SentBytes))
	fmt.Fprintf(w, "Data Received:     %s\n", FormatBytes(stats.ReceivedBytes))
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", metrics.Latency(stats.MinLatencyMs))
	fmt.Fprintf(w, "  Max:             %s\n", metrics.Latency(stats.MaxLatencyMs))
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency())
	fmt.Fprintf(w, "  P50:             %s\n", metrics.Latency(stats.P50LatencyMs))
	fmt.Fprintf(w, "  P90:             %s\n", metrics.Latency(stats.P90LatencyMs))
	fmt.Fprintf(w, "  P95:             %s\n", metrics.Latency(stats.P95LatencyMs))
	fmt.Fprintf(w, "  P99:             %s\n", metrics.Latency(stats.P99LatencyMs))

	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		writeStatusBuckets(w, stats.StatusCodes, "  ")
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		labels := make([]string, 0, len(stats.Errors))
		for label := range stats.Errors {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			if stats.Errors[labels[i]] == stats.Errors[labels[j]] {
				return labels[i] < labels[j]
			}
			return stats.Errors[labels[i]] > stats.Errors[labels[j]]
		})
		for _, label := range labels {
			fmt.Fprintf(w, "  %s: %d\n", label, stats.Errors[label])
		}
	}

	if stats.Rejected > 0 || stats.Duplicates > 0 {
		fmt.Fprintf(w, "\nDiscarded outcomes: %d out of range, %d duplicate\n", stats.Rejected, stats.Duplicates)
	}
}

// PrintThresholdResults lists each threshold with its pass/fail mark.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", passed, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// JSONReport is the document written by PrintJSONReport.
type JSONReport struct {
	RunID    string `json:"run_id,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	metrics.Stats
	Thresholds *ThresholdSummary `json:"thresholds,omitempty"`
}

// ThresholdSummary aggregates threshold results for JSON and HTML output.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is one evaluated threshold.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// SummarizeThresholds converts evaluator results; nil when there are none.
func SummarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report JSONReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeStatusBuckets(w io.Writer, counts map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(counts)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, strings.ToUpper(row.Class), row.Code, row.Count)
	}
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
