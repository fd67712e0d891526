package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMinMs   int64 = 1
	histogramMaxMs   int64 = 3_600_000
	histogramSigFigs       = 3
)

// Aggregator folds outcomes into per-index slots and summary statistics.
//
// Fold must be called from a single goroutine. The query methods may be used
// concurrently with Fold; they observe a consistent state under a read lock.
type Aggregator struct {
	mu sync.RWMutex

	total int
	slots []int64
	codes []string
	hist  *hdrhistogram.Histogram

	completed int64
	sumMs     int64
	minMs     int64
	maxMs     int64

	transportErrors int64
	serverErrors    int64
	sentBytes       uint64
	receivedBytes   uint64

	statusCounts map[string]int
	errorsByType map[string]int

	rejected   int64
	duplicates int64

	start time.Time
	end   time.Time
	done  bool
}

// NewAggregator allocates slots for total sequence indices.
func NewAggregator(total int) *Aggregator {
	if total < 0 {
		total = 0
	}
	slots := make([]int64, total)
	for i := range slots {
		slots[i] = PendingSlot
	}
	return &Aggregator{
		total:        total,
		slots:        slots,
		codes:        make([]string, total),
		hist:         hdrhistogram.New(histogramMinMs, histogramMaxMs, histogramSigFigs),
		statusCounts: make(map[string]int),
		errorsByType: make(map[string]int),
		start:        time.Now(),
	}
}

// Fold applies one outcome. It returns false when the outcome was ignored:
// after completion, for an out-of-range index, or for a repeated index.
func (a *Aggregator) Fold(o Outcome) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if o.IsTerminal() {
		a.finishLocked()
		return true
	}
	if a.done {
		return false
	}
	if o.Index < 0 || o.Index >= a.total {
		a.rejected++
		return false
	}
	if a.slots[o.Index] != PendingSlot {
		a.duplicates++
		return false
	}

	latency := o.LatencyMs
	if latency < 0 {
		latency = 0
	}
	a.slots[o.Index] = latency
	a.codes[o.Index] = o.StatusCode

	_ = a.hist.RecordValue(clamp(latency, histogramMinMs, histogramMaxMs))
	if a.completed == 0 || latency < a.minMs {
		a.minMs = latency
	}
	if latency > a.maxMs {
		a.maxMs = latency
	}
	a.sumMs += latency
	a.completed++

	switch {
	case o.IsTransportFailure():
		a.transportErrors++
	case o.IsServerError():
		a.serverErrors++
	}
	if o.Err != nil {
		a.errorsByType[ErrorLabel(o.Err)]++
	}
	code := o.StatusCode
	if code == "" {
		code = StatusTransportFailure
	}
	a.statusCounts[code]++

	a.sentBytes += o.RequestSize
	a.receivedBytes += o.ResponseSize
	return true
}

// Finish marks the run complete. Later folds are ignored.
func (a *Aggregator) Finish() {
	a.mu.Lock()
	a.finishLocked()
	a.mu.Unlock()
}

func (a *Aggregator) finishLocked() {
	if a.done {
		return
	}
	a.done = true
	a.end = time.Now()
}

// Total returns the number of planned requests.
func (a *Aggregator) Total() int { return a.total }

// Done reports whether the terminal event was folded.
func (a *Aggregator) Done() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Count returns the number of folded outcomes.
func (a *Aggregator) Count() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.completed
}

// Min returns the smallest recorded latency in milliseconds.
func (a *Aggregator) Min() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.minMs
}

// Max returns the largest recorded latency in milliseconds.
func (a *Aggregator) Max() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxMs
}

// Mean returns the arithmetic mean latency in milliseconds.
func (a *Aggregator) Mean() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.meanLocked()
}

func (a *Aggregator) meanLocked() float64 {
	if a.completed == 0 {
		return 0
	}
	return float64(a.sumMs) / float64(a.completed)
}

// Percentile returns the latency at quantile p, with p in (0, 1).
func (a *Aggregator) Percentile(p float64) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.percentileLocked(p)
}

func (a *Aggregator) percentileLocked(p float64) int64 {
	if a.completed == 0 {
		return 0
	}
	q := p * 100
	if q <= 0 {
		return a.minMs
	}
	if q > 100 {
		q = 100
	}
	// Histogram buckets report their upper equivalent value; exact min/max
	// bound the answer.
	return clamp(a.hist.ValueAtQuantile(q), a.minMs, a.maxMs)
}

// ErrorCount returns transport failures plus server errors.
func (a *Aggregator) ErrorCount() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.transportErrors + a.serverErrors
}

// ErrorRate returns ErrorCount / Count, or 0 with no outcomes.
func (a *Aggregator) ErrorRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.errorRateLocked()
}

func (a *Aggregator) errorRateLocked() float64 {
	if a.completed == 0 {
		return 0
	}
	return float64(a.transportErrors+a.serverErrors) / float64(a.completed)
}

// Progress returns the completed fraction in [0, 1]. It is exactly 1 once
// the run is done, even when the run was cancelled early.
func (a *Aggregator) Progress() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progressLocked()
}

func (a *Aggregator) progressLocked() float64 {
	if a.done {
		return 1
	}
	if a.total == 0 {
		return 0
	}
	p := float64(a.completed) / float64(a.total)
	if p > 1 {
		p = 1
	}
	return p
}

// Slots returns a copy of per-index latencies; pending entries are PendingSlot.
func (a *Aggregator) Slots() []int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]int64, len(a.slots))
	copy(out, a.slots)
	return out
}

// Status returns the status code recorded for index, or "" if pending.
func (a *Aggregator) Status(index int) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.codes) {
		return ""
	}
	return a.codes[index]
}

// Bucket is one bar of a latency distribution.
type Bucket struct {
	FromMs int64 `json:"from_ms"`
	ToMs   int64 `json:"to_ms"`
	Count  int64 `json:"count"`
}

func (b Bucket) String() string {
	return fmt.Sprintf("%d-%dms", b.FromMs, b.ToMs)
}

// Distribution groups recorded latencies into fixed-width buckets of widthMs
// milliseconds. Only non-empty buckets are returned, in ascending order.
func (a *Aggregator) Distribution(widthMs int64) []Bucket {
	if widthMs <= 0 {
		widthMs = 10
	}
	a.mu.RLock()
	bars := a.hist.Distribution()
	a.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, bar := range bars {
		if bar.Count == 0 {
			continue
		}
		counts[bar.From/widthMs] += bar.Count
	}
	if len(counts) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, Bucket{
			FromMs: k * widthMs,
			ToMs:   (k+1)*widthMs - 1,
			Count:  counts[k],
		})
	}
	return out
}

// Stats returns a snapshot of the aggregate.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	end := a.end
	if !a.done {
		end = time.Now()
	}
	elapsed := end.Sub(a.start)

	errs := a.transportErrors + a.serverErrors
	stats := Stats{
		Total:           a.total,
		Count:           a.completed,
		Successes:       a.completed - errs,
		ErrorCount:      errs,
		TransportErrors: a.transportErrors,
		ServerErrors:    a.serverErrors,
		ErrorRate:       a.errorRateLocked(),
		MinLatencyMs:    a.minMs,
		MaxLatencyMs:    a.maxMs,
		MeanLatencyMs:   a.meanLocked(),
		P50LatencyMs:    a.percentileLocked(0.50),
		P90LatencyMs:    a.percentileLocked(0.90),
		P95LatencyMs:    a.percentileLocked(0.95),
		P99LatencyMs:    a.percentileLocked(0.99),
		SentBytes:       a.sentBytes,
		ReceivedBytes:   a.receivedBytes,
		Progress:        a.progressLocked(),
		Done:            a.done,
		Duration:        elapsed,
		DurationMs:      float64(elapsed) / float64(time.Millisecond),
		Rejected:        a.rejected,
		Duplicates:      a.duplicates,
	}
	if elapsed > 0 && a.completed > 0 {
		stats.RequestsPerSec = float64(a.completed) / elapsed.Seconds()
	}
	if len(a.statusCounts) > 0 {
		stats.StatusCodes = make(map[string]int, len(a.statusCounts))
		for k, v := range a.statusCounts {
			stats.StatusCodes[k] = v
		}
	}
	if len(a.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(a.errorsByType))
		for k, v := range a.errorsByType {
			stats.Errors[k] = v
		}
	}
	return stats
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
