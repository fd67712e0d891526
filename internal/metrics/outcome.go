package metrics

import (
	"errors"
	"strconv"
)

const (
	// StatusTransportFailure is the status code recorded when no HTTP response
	// was obtained: build errors, DNS, connect, TLS, timeouts and body reads.
	StatusTransportFailure = "999"

	// SentinelLatency marks the terminal event that closes a run.
	SentinelLatency int64 = -1

	// PendingSlot is the latency stored for indices with no outcome yet.
	PendingSlot int64 = -1
)

// Outcome is the measured result of one request, identified by its sequence
// index within the run.
type Outcome struct {
	Index        int
	LatencyMs    int64
	StatusCode   string
	ResponseSize uint64
	RequestSize  uint64
	Err          error
}

// Terminal returns the sentinel outcome emitted once after the last request.
func Terminal() Outcome {
	return Outcome{Index: -1, LatencyMs: SentinelLatency}
}

// Failure builds a transport failure outcome for index.
func Failure(index int, latencyMs int64, err error) Outcome {
	return Outcome{
		Index:      index,
		LatencyMs:  latencyMs,
		StatusCode: StatusTransportFailure,
		Err:        err,
	}
}

// IsTerminal reports whether o is the end-of-run sentinel.
func (o Outcome) IsTerminal() bool {
	return o.Index < 0 && o.LatencyMs == SentinelLatency
}

// ResponseError is implemented by errors that describe an HTTP response the
// server did send, as opposed to a failure to get one.
type ResponseError interface {
	error
	HTTPStatus() int
}

// IsTransportFailure reports whether no HTTP response was received. A real
// response that happens to carry status 999 is told apart by its
// [ResponseError].
func (o Outcome) IsTransportFailure() bool {
	if o.StatusCode != StatusTransportFailure && o.StatusCode != "" {
		return false
	}
	var re ResponseError
	return !errors.As(o.Err, &re)
}

// IsServerError reports an HTTP response with status 500 or above.
func (o Outcome) IsServerError() bool {
	if o.IsTransportFailure() {
		return false
	}
	code, err := strconv.Atoi(o.StatusCode)
	return err == nil && code >= 500
}

// IsError applies the error policy: transport failures and responses with
// status 500 or above.
func (o Outcome) IsError() bool {
	return o.IsTransportFailure() || o.IsServerError()
}

// Class groups the outcome like [StatusClass], except that a real response
// carrying status 999 is "other" rather than "transport".
func (o Outcome) Class() string {
	if o.IsTransportFailure() {
		return "transport"
	}
	if o.StatusCode == StatusTransportFailure {
		return "other"
	}
	return StatusClass(o.StatusCode)
}
