package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

func sampleStats() metrics.Stats {
	return metrics.Stats{
		Total:           10,
		Count:           10,
		Successes:       7,
		ErrorCount:      3,
		TransportErrors: 1,
		ServerErrors:    2,
		ErrorRate:       0.3,
		MinLatencyMs:    5,
		MaxLatencyMs:    120,
		MeanLatencyMs:   31.5,
		P50LatencyMs:    20,
		P90LatencyMs:    90,
		P95LatencyMs:    110,
		P99LatencyMs:    120,
		SentBytes:       2048,
		ReceivedBytes:   512,
		Progress:        1,
		Done:            true,
		Duration:        2 * time.Second,
		DurationMs:      2000,
		RequestsPerSec:  5,
		StatusCodes:     map[string]int{"200": 7, "503": 2, "999": 1},
		Errors:          map[string]int{"HTTP 503": 2, "Timeout": 1},
	}
}

func TestPrintReportBasic(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleStats())

	out := buf.String()
	for _, want := range []string{
		"Planned Requests:  10",
		"Successful:        7",
		"Errors:            3 (transport 1, server 2)",
		"Error Rate:        30.00%",
		"Data Sent:         2.0 KiB",
		"Data Received:     512 B",
		"P95:             110ms",
		"2XX 200: 7",
		"TRANSPORT 999: 1",
		"HTTP 503: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cancelled") {
		t.Errorf("completed run should not be reported as cancelled")
	}
}

func TestPrintReportErrorBreakdownOrder(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleStats())
	out := buf.String()
	if strings.Index(out, "HTTP 503") > strings.Index(out, "Timeout:") {
		t.Errorf("expected errors ordered by count:\n%s", out)
	}
}

func TestPrintReportCancelled(t *testing.T) {
	stats := sampleStats()
	stats.Cancelled = true
	stats.Rejected = 2
	var buf bytes.Buffer
	PrintReport(&buf, stats)
	out := buf.String()
	if !strings.Contains(out, "Run cancelled") {
		t.Errorf("expected cancellation notice:\n%s", out)
	}
	if !strings.Contains(out, "2 out of range") {
		t.Errorf("expected discarded outcomes line:\n%s", out)
	}
}

func TestPrintThresholdResults(t *testing.T) {
	var buf bytes.Buffer
	PrintThresholdResults(&buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty results, got %q", buf.String())
	}

	results := []threshold.Result{
		{Pass: true, Message: "latency:p95 < 500: PASS"},
		{Pass: false, Message: "errors:rate < 0.01: FAIL"},
	}
	PrintThresholdResults(&buf, results)
	out := buf.String()
	if !strings.Contains(out, "Thresholds (1/2 passed)") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "errors:rate < 0.01: FAIL") {
		t.Errorf("missing failed threshold line:\n%s", out)
	}
}

func TestPrintJSONReport(t *testing.T) {
	th, err := threshold.Parse("latency:p95 < 100")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results := []threshold.Result{{Threshold: th, Actual: 110, Pass: false}}

	var buf bytes.Buffer
	report := JSONReport{
		RunID:      "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Endpoint:   "GET http://localhost/",
		Stats:      sampleStats(),
		Thresholds: SummarizeThresholds(results),
	}
	if err := PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("PrintJSONReport: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["run_id"] != report.RunID {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if decoded["total"] != float64(10) {
		t.Errorf("total = %v, want 10", decoded["total"])
	}
	if decoded["p95_latency_ms"] != float64(110) {
		t.Errorf("p95_latency_ms = %v", decoded["p95_latency_ms"])
	}
	ths, ok := decoded["thresholds"].(map[string]interface{})
	if !ok {
		t.Fatalf("thresholds missing: %v", decoded)
	}
	if ths["failed"] != float64(1) || ths["passed"] != float64(0) {
		t.Errorf("threshold summary = %v", ths)
	}
}

func TestSummarizeThresholdsEmpty(t *testing.T) {
	if got := SummarizeThresholds(nil); got != nil {
		t.Errorf("expected nil summary, got %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
