package metrics

import "time"

// Stats represents aggregated metrics for a run. Latencies are whole
// milliseconds except the mean.
type Stats struct {
	Total           int     `json:"total"`
	Count           int64   `json:"count"`
	Successes       int64   `json:"successes"`
	ErrorCount      int64   `json:"error_count"`
	TransportErrors int64   `json:"transport_errors"`
	ServerErrors    int64   `json:"server_errors"`
	ErrorRate       float64 `json:"error_rate"`

	MinLatencyMs  int64   `json:"min_latency_ms"`
	MaxLatencyMs  int64   `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  int64   `json:"p50_latency_ms"`
	P90LatencyMs  int64   `json:"p90_latency_ms"`
	P95LatencyMs  int64   `json:"p95_latency_ms"`
	P99LatencyMs  int64   `json:"p99_latency_ms"`

	SentBytes     uint64 `json:"sent_bytes"`
	ReceivedBytes uint64 `json:"received_bytes"`

	Progress  float64 `json:"progress"`
	Done      bool    `json:"done"`
	Cancelled bool    `json:"cancelled,omitempty"`

	Duration       time.Duration `json:"-"`
	DurationMs     float64       `json:"duration_ms"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	StatusCodes map[string]int `json:"status_codes,omitempty"`
	Errors      map[string]int `json:"errors,omitempty"`

	Rejected   int64 `json:"rejected,omitempty"`
	Duplicates int64 `json:"duplicates,omitempty"`
}

// Latency converts a millisecond field to a time.Duration for display.
func Latency(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// MeanLatency returns the mean as a time.Duration.
func (s Stats) MeanLatency() time.Duration {
	return time.Duration(s.MeanLatencyMs * float64(time.Millisecond))
}
