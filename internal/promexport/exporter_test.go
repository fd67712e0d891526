package promexport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/volley/internal/metrics"
)

func TestExporter_RecordsOutcomes(t *testing.T) {
	e := New(prometheus.Labels{"run_id": "run-1"})
	e.SetPlanned(4)

	e.OnOutcome(metrics.Outcome{Index: 0, LatencyMs: 12, StatusCode: "200", RequestSize: 10, ResponseSize: 100})
	e.OnOutcome(metrics.Outcome{Index: 1, LatencyMs: 30, StatusCode: "200", RequestSize: 10, ResponseSize: 50})
	e.OnOutcome(metrics.Outcome{Index: 2, LatencyMs: 5, StatusCode: "503"})
	e.OnOutcome(metrics.Failure(3, 1000, errors.New("dial tcp: connection refused")))
	e.OnOutcome(metrics.Terminal())

	assert.Equal(t, 4.0, testutil.ToFloat64(e.planned))
	assert.Equal(t, 4.0, testutil.ToFloat64(e.completed))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.outcomes.WithLabelValues("200", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.outcomes.WithLabelValues("503", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.outcomes.WithLabelValues("999", "transport")))
	assert.Equal(t, 20.0, testutil.ToFloat64(e.sentBytes))
	assert.Equal(t, 150.0, testutil.ToFloat64(e.receivedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.progress))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.finished))

	e.OnFinish(metrics.Stats{ErrorRate: 0.5, Progress: 1})
	assert.Equal(t, 1.0, testutil.ToFloat64(e.finished))
	assert.Equal(t, 0.5, testutil.ToFloat64(e.errorRate))
}

func TestExporter_Handler(t *testing.T) {
	e := New(prometheus.Labels{"run_id": "run-2"})
	e.OnOutcome(metrics.Outcome{Index: 0, LatencyMs: 8, StatusCode: "204"})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `volley_outcomes_total{class="2xx",code="204",run_id="run-2"} 1`)
	assert.Contains(t, body, "volley_request_duration_seconds_count")
}

func TestExporter_ServeStopsWithContext(t *testing.T) {
	e := New(prometheus.Labels{"run_id": "run-3"})
	ctx, cancel := context.WithCancel(context.Background())
	addr, err := e.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "volley_requests_planned"))

	cancel()
	assert.Eventually(t, func() bool {
		_, err := http.Get("http://" + addr.String() + "/metrics")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestExporter_ServeBadAddress(t *testing.T) {
	_, err := New(prometheus.Labels{"run_id": "run-4"}).Serve(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
