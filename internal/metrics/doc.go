// Package metrics aggregates request outcomes for a load test run.
//
// Every request in a run has a sequence index. Its measured result is an
// [Outcome]; the [Aggregator] folds outcomes into a per-index latency slot
// array, an HDR histogram bounded to 1ms..1h and running counters:
//
//	agg := metrics.NewAggregator(rate * rounds)
//	for o := range events {
//		agg.Fold(o)
//		if o.IsTerminal() {
//			break
//		}
//	}
//	stats := agg.Stats()
//
// # Error Policy
//
// Outcomes with status [StatusTransportFailure] ("999") and no [ResponseError]
// are transport errors: no HTTP response was received. Responses with status
// 500 or above, including a real 999, are server errors. Both
// count toward [Stats.ErrorCount] and [Stats.ErrorRate]; they are also
// reported separately. 4xx responses are not errors.
//
// # Thread Safety
//
// Fold is meant for a single writer goroutine. Queries take a read lock and
// can run concurrently with it, which lets a UI poll a live run.
package metrics
