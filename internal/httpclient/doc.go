// Package httpclient builds and executes the HTTP requests of a load test run.
//
// # Request Building
//
// [NewRequestBuilder] validates a resolved template once (method, absolute
// http/https URL, enabled headers) and produces a fresh request per sequence
// index:
//
//	builder := httpclient.NewRequestBuilder(tmpl, httpclient.BuilderOptions{})
//	if err := builder.Err(); err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, index)
//
// Failures are reported as [*BuildError] wrapping [ErrUnknownMethod],
// [ErrMalformedURL] or [ErrInvalidHeader].
//
// # Execution
//
// [Executor] sends one request per index through a shared client from
// [NewClient] and returns a [metrics.Outcome]. Transport and build failures
// are outcomes with status "999"; nothing is retried. TLS certificates are
// verified unless [ClientOptions.InsecureSkipVerify] is set.
package httpclient
