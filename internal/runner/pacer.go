package runner

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

var errPacerClosed = errors.New("round pacer cannot grant a token")

// roundPacer spaces round starts with a burst-1 token bucket. The first
// token is taken when the run starts so round 0 begins immediately.
type roundPacer struct {
	limiter *rate.Limiter
}

func newRoundPacer(opt Options) *roundPacer {
	return &roundPacer{limiter: opt.LimiterFactory(opt.RoundInterval)}
}

func (p *roundPacer) start() {
	if p == nil || p.limiter == nil {
		return
	}
	p.limiter.Allow()
}

// Wait blocks until the next round may start. Unlike rate.Limiter.Wait it
// does not give up early when ctx has a deadline shorter than the delay; it
// returns ctx.Err() only once ctx is actually done.
func (p *roundPacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	r := p.limiter.Reserve()
	if !r.OK() {
		return errPacerClosed
	}
	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
