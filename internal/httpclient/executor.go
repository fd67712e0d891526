package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/tracing"
)

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Timeout is the per-request deadline, applied through the request context.
	Timeout time.Duration
	// Tracing wraps each request in a client span. Nil disables tracing.
	Tracing *tracing.Provider
}

// Executor performs one request per sequence index and measures it. It is
// safe for concurrent use; all requests share one client.
type Executor struct {
	client  *http.Client
	builder *RequestBuilder
	timeout time.Duration
	tracing *tracing.Provider
}

func NewExecutor(client *http.Client, builder *RequestBuilder, opts ExecutorOptions) *Executor {
	if client == nil {
		client = NewClient(ClientOptions{Timeout: opts.Timeout})
	}
	return &Executor{
		client:  client,
		builder: builder,
		timeout: opts.Timeout,
		tracing: opts.Tracing,
	}
}

// Do builds and sends the request for index. It never returns an error:
// build and transport failures become outcomes with status "999".
func (e *Executor) Do(ctx context.Context, index int) metrics.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := tracing.StartRequestSpan(ctx, e.tracing.Tracer(), e.builder.Endpoint(), index)

	req, err := e.builder.Build(ctx, index)
	if err != nil {
		tracing.EndSpan(span, err)
		return metrics.Failure(index, 0, err)
	}
	if e.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	out := e.Execute(req, index)
	tracing.EndSpan(span, out.Err,
		attribute.String("http.response.status_code", out.StatusCode),
		attribute.Int64("volley.latency_ms", out.LatencyMs),
	)
	return out
}

// Execute sends a prepared request. Elapsed time runs from just before the
// send until the response body has been fully read.
func (e *Executor) Execute(req *http.Request, index int) metrics.Outcome {
	var sent uint64
	if req.ContentLength > 0 {
		sent = uint64(req.ContentLength)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		out := metrics.Failure(index, time.Since(start).Milliseconds(), err)
		out.RequestSize = sent
		return out
	}
	defer resp.Body.Close()

	read, err := io.Copy(io.Discard, resp.Body)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		out := metrics.Failure(index, latency, fmt.Errorf("read response body: %w", err))
		out.RequestSize = sent
		return out
	}

	size := uint64(read)
	if resp.ContentLength >= 0 {
		size = uint64(resp.ContentLength)
	}

	out := metrics.Outcome{
		Index:        index,
		LatencyMs:    latency,
		StatusCode:   strconv.Itoa(resp.StatusCode),
		ResponseSize: size,
		RequestSize:  sent,
	}
	if resp.StatusCode >= 500 {
		out.Err = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return out
}
