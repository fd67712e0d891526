// Package promexport publishes live run metrics in Prometheus format.
package promexport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/torosent/volley/internal/metrics"
)

const MetricPrefix = "volley_"

// Exporter is an engine observer that mirrors outcomes into Prometheus
// collectors held in a private registry.
type Exporter struct {
	registry *prometheus.Registry

	planned       prometheus.Gauge
	completed     prometheus.Counter
	outcomes      *prometheus.CounterVec
	latency       prometheus.Histogram
	sentBytes     prometheus.Counter
	receivedBytes prometheus.Counter
	progress      prometheus.Gauge
	finished      prometheus.Gauge
	errorRate     prometheus.Gauge

	// plannedN and completedN are only touched by SetPlanned before the run
	// starts and by the run's drain goroutine afterwards.
	plannedN   float64
	completedN float64
}

// New creates an exporter whose series all carry constLabels.
func New(constLabels prometheus.Labels) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		planned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "requests_planned",
			Help:        "Number of requests planned for the run",
			ConstLabels: constLabels,
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "requests_completed_total",
			Help:        "Number of requests with a recorded outcome",
			ConstLabels: constLabels,
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricPrefix + "outcomes_total",
			Help:        "Outcomes by status code and class",
			ConstLabels: constLabels,
		}, []string{"code", "class"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        MetricPrefix + "request_duration_seconds",
			Help:        "Request latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		sentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "sent_bytes_total",
			Help:        "Request bytes sent",
			ConstLabels: constLabels,
		}),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        MetricPrefix + "received_bytes_total",
			Help:        "Response bytes received",
			ConstLabels: constLabels,
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "progress_ratio",
			Help:        "Completed fraction of the planned requests",
			ConstLabels: constLabels,
		}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "run_finished",
			Help:        "1 once the run has finished",
			ConstLabels: constLabels,
		}),
		errorRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        MetricPrefix + "error_rate",
			Help:        "Fraction of completed requests that failed, set when the run finishes",
			ConstLabels: constLabels,
		}),
	}
	e.registry.MustRegister(
		e.planned,
		e.completed,
		e.outcomes,
		e.latency,
		e.sentBytes,
		e.receivedBytes,
		e.progress,
		e.finished,
		e.errorRate,
	)
	return e
}

// SetPlanned records the number of requests the run will send. Call it
// before the run starts.
func (e *Exporter) SetPlanned(total uint64) {
	e.plannedN = float64(total)
	e.planned.Set(e.plannedN)
}

func (e *Exporter) OnOutcome(o metrics.Outcome) {
	if o.IsTerminal() {
		return
	}
	code := o.StatusCode
	if code == "" {
		code = metrics.StatusTransportFailure
	}
	e.completed.Inc()
	e.completedN++
	if e.plannedN > 0 {
		e.progress.Set(e.completedN / e.plannedN)
	}
	e.outcomes.WithLabelValues(code, o.Class()).Inc()
	if o.LatencyMs >= 0 {
		e.latency.Observe(float64(o.LatencyMs) / 1000)
	}
	e.sentBytes.Add(float64(o.RequestSize))
	e.receivedBytes.Add(float64(o.ResponseSize))
}

func (e *Exporter) OnFinish(stats metrics.Stats) {
	e.errorRate.Set(stats.ErrorRate)
	e.progress.Set(stats.Progress)
	e.finished.Set(1)
}

// Registry exposes the exporter's registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. The listener is
// bound before Serve returns, so bind errors surface immediately.
func (e *Exporter) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("serving metrics")
	return ln.Addr(), nil
}
