package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/runner"
)

// Run is the handle of one load test. All methods are safe for concurrent
// use.
type Run struct {
	id       ulid.ULID
	plan     Plan
	endpoint string

	agg    *metrics.Aggregator
	sched  *runner.Scheduler
	cancel context.CancelFunc
	done   chan struct{}

	observers []Observer
	log       log.FieldLogger

	cancelled atomic.Bool

	mu     sync.RWMutex
	result runner.Result
}

func (r *Run) ID() string { return r.id.String() }

func (r *Run) Plan() Plan { return r.plan }

// Endpoint returns the "METHOD /path" label of the run's template.
func (r *Run) Endpoint() string { return r.endpoint }

// Done is closed once the run has finished and observers were notified.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) IsDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// State reports the scheduler lifecycle state.
func (r *Run) State() runner.State { return r.sched.State() }

// InFlight returns the number of requests currently outstanding.
func (r *Run) InFlight() int64 { return r.sched.InFlight() }

func (r *Run) Progress() float64 { return r.agg.Progress() }

// Stats returns a snapshot of the aggregate.
func (r *Run) Stats() metrics.Stats {
	stats := r.agg.Stats()
	if r.cancelled.Load() {
		stats.Cancelled = true
	}
	return stats
}

// Slots returns the latency of every index in sequence order; indices
// without an outcome yet hold metrics.PendingSlot.
func (r *Run) Slots() []int64 { return r.agg.Slots() }

// Status returns the status code recorded for index.
func (r *Run) Status(index int) string { return r.agg.Status(index) }

// Distribution groups latencies into buckets of widthMs milliseconds.
func (r *Run) Distribution(widthMs int64) []metrics.Bucket {
	return r.agg.Distribution(widthMs)
}

// Cancel stops dispatching new rounds. Requests already in flight finish,
// the run completes with Progress 1 and Stats().Cancelled set.
func (r *Run) Cancel() {
	if r.IsDone() {
		return
	}
	r.cancelled.Store(true)
	r.cancel()
}

// Wait blocks until the run finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (metrics.Stats, error) {
	select {
	case <-r.done:
		return r.Stats(), nil
	case <-ctx.Done():
		return r.Stats(), ctx.Err()
	}
}

// Result returns the scheduler summary. It is zero until the run is done.
func (r *Run) Result() runner.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

// drain is the only writer of the aggregator.
func (r *Run) drain(events <-chan metrics.Outcome, results <-chan runner.Result) {
	for o := range events {
		if !r.agg.Fold(o) && !o.IsTerminal() {
			r.log.WithField("index", o.Index).Warn("discarded outcome")
			continue
		}
		if o.IsTerminal() {
			break
		}
		r.notifyOutcome(o)
	}

	res := <-results
	r.cancelled.Store(res.Cancelled)
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
	r.cancel()

	stats := r.Stats()
	r.notifyFinish(stats)

	entry := r.log.WithFields(log.Fields{
		"completed": stats.Count,
		"errors":    stats.ErrorCount,
		"duration":  res.Duration,
	})
	if stats.Cancelled {
		entry.Info("run cancelled")
	} else {
		entry.Info("run finished")
	}
	close(r.done)
}

func (r *Run) notifyOutcome(o metrics.Outcome) {
	for _, obs := range r.observers {
		r.safeNotify(func() { obs.OnOutcome(o) })
	}
}

func (r *Run) notifyFinish(stats metrics.Stats) {
	for _, obs := range r.observers {
		r.safeNotify(func() { obs.OnFinish(stats) })
	}
}

func (r *Run) safeNotify(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", p).Warn("recovered observer panic")
		}
	}()
	fn()
}
