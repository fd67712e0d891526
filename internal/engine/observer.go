package engine

import (
	"github.com/torosent/volley/internal/metrics"
)

// Observer receives the live event stream of a run. Calls come from the
// run's drain goroutine, one at a time and in fold order, so a slow observer
// slows down folding. OnFinish is called once, before Run.Done is closed.
type Observer interface {
	OnOutcome(o metrics.Outcome)
	OnFinish(stats metrics.Stats)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Outcome func(metrics.Outcome)
	Finish  func(metrics.Stats)
}

func (f ObserverFuncs) OnOutcome(o metrics.Outcome) {
	if f.Outcome != nil {
		f.Outcome(o)
	}
}

func (f ObserverFuncs) OnFinish(stats metrics.Stats) {
	if f.Finish != nil {
		f.Finish(stats)
	}
}
