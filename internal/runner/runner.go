package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/volley/internal/metrics"
)

// State is the scheduler lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Result captures execution summary.
type Result struct {
	Planned     uint64
	Dispatched  uint64
	RoundsRun   uint32
	Overruns    uint32 // rounds that took longer than RoundInterval
	Cancelled   bool
	Duration    time.Duration
	MaxInFlight int64
}

// PanicError wraps a value recovered from a panicking requester.
type PanicError struct {
	Index int
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("requester panicked on request #%d: %v", e.Index, e.Value)
}

// Scheduler runs rounds of requests. A Scheduler is single use.
type Scheduler struct {
	opt   Options
	pacer *roundPacer
	log   log.FieldLogger

	state       atomic.Int32
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func New(opt Options) *Scheduler {
	opt.normalize()
	return &Scheduler{
		opt:   opt,
		pacer: newRoundPacer(opt),
		log:   opt.Logger,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// InFlight returns the number of requester calls currently running.
func (s *Scheduler) InFlight() int64 {
	return s.inFlight.Load()
}

// Run dispatches every round and sends one outcome per index on events,
// followed by the terminal outcome. Cancelling ctx stops dispatch between
// rounds and aborts the pacing wait. Calls already in flight are detached
// from the cancellation and finish under their own deadline, so a stop never
// shows up as a failed request. Run blocks until the terminal outcome has
// been sent.
func (s *Scheduler) Run(ctx context.Context, events chan<- metrics.Outcome) (res Result) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		s.log.Warn("scheduler already started; ignoring Run")
		return Result{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res.Planned = s.opt.Total()

	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Warn("scheduler loop panicked; closing run")
			res.Cancelled = true
		}
		s.state.Store(int32(StateDraining))
		res.Duration = time.Since(start)
		res.MaxInFlight = s.maxInFlight.Load()
		events <- metrics.Terminal()
		s.state.Store(int32(StateDone))
	}()

	if s.opt.Requester == nil || res.Planned == 0 {
		return res
	}

	s.pacer.start()
	for round := uint32(0); round < s.opt.Rounds; round++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		roundStart := time.Now()
		s.runRound(ctx, round, events)
		res.Dispatched += uint64(s.opt.Rate)
		res.RoundsRun++

		if elapsed := time.Since(roundStart); elapsed > s.opt.RoundInterval {
			res.Overruns++
			s.log.WithFields(log.Fields{
				"round":    round,
				"elapsed":  elapsed,
				"interval": s.opt.RoundInterval,
			}).Debug("round overran its interval")
		}

		if err := s.pacer.Wait(ctx); err != nil {
			if round+1 < s.opt.Rounds {
				res.Cancelled = true
			}
			break
		}
	}
	return res
}

func (s *Scheduler) runRound(ctx context.Context, round uint32, events chan<- metrics.Outcome) {
	size := int(s.opt.Rate)
	base := int(uint64(round) * uint64(s.opt.Rate))
	callCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(size)
	for i := 0; i < size; i++ {
		index := base + i
		g.Go(func() error {
			events <- s.call(callCtx, index)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) call(ctx context.Context, index int) (out metrics.Outcome) {
	n := s.inFlight.Add(1)
	for {
		peak := s.maxInFlight.Load()
		if n <= peak || s.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	start := time.Now()
	defer func() {
		s.inFlight.Add(-1)
		if r := recover(); r != nil {
			err := &PanicError{Index: index, Value: r}
			s.log.WithField("index", index).WithError(err).Warn("recovered requester panic")
			out = metrics.Failure(index, time.Since(start).Milliseconds(), err)
		}
	}()

	out = s.opt.Requester.Do(ctx, index)
	out.Index = index
	return out
}
