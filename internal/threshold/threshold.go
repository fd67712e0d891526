// Package threshold evaluates pass/fail assertions against final run stats.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/volley/internal/metrics"
)

const (
	MetricLatency  = "latency"
	MetricErrors   = "errors"
	MetricRequests = "requests"
)

// metricAliases accepts the k6-style names as well.
var metricAliases = map[string]string{
	"latency":           MetricLatency,
	"http_req_duration": MetricLatency,
	"errors":            MetricErrors,
	"http_req_failed":   MetricErrors,
	"requests":          MetricRequests,
	"http_requests":     MetricRequests,
}

var validAggregates = map[string][]string{
	MetricLatency:  {"p50", "p90", "p95", "p99", "avg", "mean", "min", "max"},
	MetricErrors:   {"rate", "count"},
	MetricRequests: {"rate", "count"},
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // latency, errors or requests
	Aggregate string  // e.g. "p95", "max", "rate", "count"
	Operator  string  // <, <=, >, >=, ==
	Value     float64 // milliseconds for latency, fraction for errors:rate
	Raw       string  // original text for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("error: %v", err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.4g %s %.4g", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string. Supported forms:
//
//	latency:p95 < 500      percentile latency in ms (p50, p90, p95, p99)
//	latency:avg < 200      mean latency in ms (also min, max)
//	errors:rate < 0.01     error fraction of completed requests
//	errors:count == 0      number of errors
//	requests:count >= 100  completed requests
//	requests:rate > 50     completed requests per second
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}

	metric, ok := metricAliases[matches[1]]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, errors, requests)", matches[1])
	}
	aggregate := matches[2]
	if !contains(validAggregates[metric], aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)",
			aggregate, metric, strings.Join(validAggregates[metric], ", "))
	}
	operator := matches[3]
	if !contains([]string{"<", "<=", ">", ">=", "=="}, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}
	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", matches[4], err)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, reporting every invalid one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case MetricLatency:
		return latencyValue(t.Aggregate, stats)
	case MetricErrors:
		switch t.Aggregate {
		case "count":
			return float64(stats.ErrorCount), nil
		case "rate":
			return stats.ErrorRate, nil
		}
	case MetricRequests:
		switch t.Aggregate {
		case "count":
			return float64(stats.Count), nil
		case "rate":
			return stats.RequestsPerSec, nil
		}
	}
	return 0, fmt.Errorf("unsupported threshold %s:%s", t.Metric, t.Aggregate)
}

func latencyValue(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return float64(stats.P50LatencyMs), nil
	case "p90":
		return float64(stats.P90LatencyMs), nil
	case "p95":
		return float64(stats.P95LatencyMs), nil
	case "p99":
		return float64(stats.P99LatencyMs), nil
	case "avg", "mean":
		return stats.MeanLatencyMs, nil
	case "min":
		return float64(stats.MinLatencyMs), nil
	case "max":
		return float64(stats.MaxLatencyMs), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
