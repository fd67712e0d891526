// Package engine starts and tracks load test runs.
//
// A [Controller] turns a resolved [request.Template] and a [Plan] into a
// running [Run]: it builds the request pipeline, starts a round scheduler on
// its own goroutine and drains the scheduler's outcomes into a run-scoped
// aggregator from a single goroutine. The returned handle exposes live
// progress and statistics and closes [Run.Done] once the final outcome has
// been folded and every [Observer] has seen the final stats.
//
//	ctrl := engine.NewController(engine.Options{Timeout: 10 * time.Second})
//	run, err := ctrl.Start(ctx, tmpl, engine.Plan{Rate: 20, Rounds: 30})
//	if err != nil {
//		return err
//	}
//	stats, err := run.Wait(ctx)
package engine
