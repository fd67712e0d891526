package output

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/torosent/volley/internal/metrics"
)

// StatsSource is anything that can produce a live stats snapshot, such as
// an engine run.
type StatsSource interface {
	Stats() metrics.Stats
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

const progressBarWidth = 20

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	source   StatsSource
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	frame    int
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source StatsSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		source:   source,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates after printing a final line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+p.line(p.source.Stats()))
		case <-p.done:
			fmt.Fprint(p.writer, "\r"+p.line(p.source.Stats()))
			return
		}
	}
}

func (p *ProgressReporter) line(stats metrics.Stats) string {
	spin := spinnerFrames[p.frame%len(spinnerFrames)]
	p.frame++
	if stats.Done {
		spin = " "
	}
	return fmt.Sprintf("%s %s %5.1f%% | Requests: %d/%d | Errors: %d | RPS: %.1f | P95: %dms",
		spin, progressBar(stats.Progress), stats.Progress*100,
		stats.Count, stats.Total, stats.ErrorCount, stats.RequestsPerSec, stats.P95LatencyMs)
}

func progressBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * progressBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", progressBarWidth-filled) + "]"
}
