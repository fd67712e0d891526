package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

func TestGenerateHTMLReportBasic(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateHTMLReport(&buf, ReportInput{
		Stats: sampleStats(),
		Slots: []int64{10, 20, metrics.PendingSlot, 40},
		Distribution: []metrics.Bucket{
			{FromMs: 0, ToMs: 9, Count: 1},
			{FromMs: 10, ToMs: 19, Count: 4},
		},
		Metadata: ReportMetadata{
			RunID:         "01J0000000000000000000TEST",
			TargetURL:     "http://localhost:8080/api",
			Method:        "POST",
			Rate:          5,
			Rounds:        2,
			RoundInterval: time.Second,
		},
	})
	if err != nil {
		t.Fatalf("GenerateHTMLReport: %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"Volley Load Test Report",
		"POST http://localhost:8080/api",
		"01J0000000000000000000TEST",
		"5 requests x 2 rounds",
		"Latency Distribution",
		"10-19ms",
		"width: 100.0%",
		"Status Codes",
		"latency-chart",
		`"latency":[10,20,null,40]`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "Thresholds (") {
		t.Error("did not expect a thresholds section without results")
	}
}

func TestGenerateHTMLReportThresholds(t *testing.T) {
	th, err := threshold.Parse("latency:p95 < 500")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	err = GenerateHTMLReport(&buf, ReportInput{
		Stats:            sampleStats(),
		ThresholdResults: []threshold.Result{{Threshold: th, Actual: 110, Pass: true}},
	})
	if err != nil {
		t.Fatalf("GenerateHTMLReport: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Thresholds (1/1 Passed)") {
		t.Error("expected threshold summary header")
	}
	if !strings.Contains(html, "PASS") {
		t.Error("expected PASS marker")
	}
}

func TestGenerateHTMLReportEscapesTarget(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateHTMLReport(&buf, ReportInput{
		Stats:    metrics.Stats{},
		Metadata: ReportMetadata{TargetURL: "http://x/<script>alert(1)</script>"},
	})
	if err != nil {
		t.Fatalf("GenerateHTMLReport: %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert(1)</script>") {
		t.Error("target URL was not escaped")
	}
	if strings.Contains(buf.String(), "new uPlot") {
		t.Error("chart script should be omitted without slots")
	}
}

func TestDownsampleSlots(t *testing.T) {
	slots := make([]int64, 10)
	for i := range slots {
		slots[i] = int64(i)
	}
	got := downsampleSlots(slots, 4)
	if len(got.Index) != 4 {
		t.Fatalf("expected 4 points, got %d", len(got.Index))
	}
	if got.Index[1] != 3 || *got.Latency[1] != 3 {
		t.Errorf("unexpected second point: %d=%v", got.Index[1], *got.Latency[1])
	}

	if empty := downsampleSlots(nil, 10); len(empty.Index) != 0 {
		t.Errorf("expected empty series")
	}
}
