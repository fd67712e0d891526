package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/torosent/volley/internal/engine"
	"github.com/torosent/volley/internal/metrics"
)

// failureLogger logs every failed outcome of a run.
type failureLogger struct {
	log log.FieldLogger
}

var _ engine.Observer = (*failureLogger)(nil)

func newFailureLogger(logger log.FieldLogger) *failureLogger {
	return &failureLogger{log: logger}
}

func (l *failureLogger) OnOutcome(o metrics.Outcome) {
	if o.IsTerminal() || !o.IsError() {
		return
	}
	entry := l.log.WithFields(log.Fields{
		"index":      o.Index,
		"status":     o.StatusCode,
		"latency_ms": o.LatencyMs,
	})
	if o.Err != nil {
		entry = entry.WithField("error", metrics.ErrorLabel(o.Err)).WithError(o.Err)
	}
	entry.Warn("request failed")
}

func (l *failureLogger) OnFinish(stats metrics.Stats) {
	if stats.ErrorCount > 0 {
		l.log.WithField("errors", stats.ErrorCount).Info("run finished with failed requests")
	}
}
