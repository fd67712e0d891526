// Package runner dispatches the requests of a load test in fixed-size rounds.
//
// A [Scheduler] issues Rate requester calls per round for Rounds rounds.
// Sequence indices are assigned at dispatch: round r owns indices
// [r*Rate, (r+1)*Rate). At most Rate calls are in flight at once and a round
// ends only when every call of the round has produced an outcome.
//
// # Basic Usage
//
//	s := runner.New(runner.Options{
//		Rate:          50,
//		Rounds:        10,
//		RoundInterval: time.Second,
//		Requester:     executor,
//	})
//	events := make(chan metrics.Outcome, 51)
//	go s.Run(ctx, events)
//
// Every dispatched index is sent on events exactly once. After the last
// round, or after cancellation, a single [metrics.Terminal] outcome is sent
// and the scheduler reaches [StateDone]. Cancellation only stops dispatch;
// calls already running keep going until their own deadline.
//
// # Pacing
//
// Round starts are paced by a token bucket holding one token per
// RoundInterval. A round that finishes early waits out the rest of its
// interval; a round that overruns is followed immediately by the next one
// without catching up the lost time. The last round is followed by the same
// wait, so a full run lasts about Rounds*RoundInterval.
//
// # Requester Interface
//
// The [Requester] interface defines what a scheduler executes:
//
//	type Requester interface {
//		Do(ctx context.Context, index int) metrics.Outcome
//	}
//
// A requester never fails the run: errors are carried inside the outcome.
// A panicking requester is recovered and reported as a transport failure
// wrapping [*PanicError].
package runner
