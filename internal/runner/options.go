package runner

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/torosent/volley/internal/metrics"
)

// Requester performs the request for one sequence index.
type Requester interface {
	Do(ctx context.Context, index int) metrics.Outcome
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, index int) metrics.Outcome

func (f RequesterFunc) Do(ctx context.Context, index int) metrics.Outcome {
	return f(ctx, index)
}

// Options configure the Scheduler.
type Options struct {
	Rate          uint32        // requests per round, also the in-flight cap
	Rounds        uint32        // number of rounds
	RoundInterval time.Duration // minimum spacing between round starts (default 1s)
	Requester     Requester     // request executor (required)
	// LimiterFactory builds the round pacer; tests inject fast limiters.
	LimiterFactory func(interval time.Duration) *rate.Limiter
	Logger         log.FieldLogger
}

// Total returns Rate*Rounds.
func (o Options) Total() uint64 {
	return uint64(o.Rate) * uint64(o.Rounds)
}

func (o *Options) normalize() {
	if o.RoundInterval <= 0 {
		o.RoundInterval = time.Second
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(interval time.Duration) *rate.Limiter {
			return rate.NewLimiter(rate.Every(interval), 1)
		}
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
}
