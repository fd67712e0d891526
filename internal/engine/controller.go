package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/torosent/volley/internal/httpclient"
	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/request"
	"github.com/torosent/volley/internal/runner"
	"github.com/torosent/volley/internal/tracing"
)

// Options configure every run started by a Controller.
type Options struct {
	// Client is shared by all requests of a run. When nil a client is built
	// from Timeout and Insecure.
	Client         *http.Client
	Timeout        time.Duration
	Insecure       bool
	SequenceHeader string
	Tracing        *tracing.Provider
	Observers      []Observer
	Logger         log.FieldLogger
	// LimiterFactory overrides round pacing; used by tests.
	LimiterFactory func(interval time.Duration) *rate.Limiter
}

// Controller starts runs.
type Controller struct {
	opts Options
	log  log.FieldLogger
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Controller{opts: opts, log: logger}
}

// Start launches a run of tmpl shaped by plan and returns immediately.
// Cancelling ctx cancels the run the same way Run.Cancel does. A template
// that fails validation does not fail Start: every index of the run then
// reports a "999" outcome carrying the build error.
func (c *Controller) Start(ctx context.Context, tmpl request.Template, plan Plan) (*Run, error) {
	if err := plan.validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := ulid.Make()
	logger := c.log.WithFields(log.Fields{
		"run_id": id.String(),
		"rate":   plan.Rate,
		"rounds": plan.Rounds,
	})

	builder := httpclient.NewRequestBuilder(tmpl, httpclient.BuilderOptions{
		SequenceHeader: c.opts.SequenceHeader,
	})
	if err := builder.Err(); err != nil {
		logger.WithError(err).Warn("request template is invalid; every request will fail")
	}

	client := c.opts.Client
	if client == nil {
		client = httpclient.NewClient(httpclient.ClientOptions{
			Timeout:            c.opts.Timeout,
			InsecureSkipVerify: c.opts.Insecure,
			MaxConnsPerHost:    int(plan.Rate),
		})
	}
	executor := httpclient.NewExecutor(client, builder, httpclient.ExecutorOptions{
		Timeout: c.opts.Timeout,
		Tracing: c.opts.Tracing,
	})

	sched := runner.New(runner.Options{
		Rate:           plan.Rate,
		Rounds:         plan.Rounds,
		RoundInterval:  plan.interval(),
		Requester:      executor,
		LimiterFactory: c.opts.LimiterFactory,
		Logger:         logger,
	})

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		id:        id,
		plan:      plan,
		endpoint:  builder.Endpoint(),
		agg:       metrics.NewAggregator(int(plan.Total())),
		sched:     sched,
		cancel:    cancel,
		done:      make(chan struct{}),
		observers: append([]Observer(nil), c.opts.Observers...),
		log:       logger,
	}

	events := make(chan metrics.Outcome, int(plan.Rate)+1)
	results := make(chan runner.Result, 1)

	logger.WithField("target", tmpl.String()).Info("run started")
	go func() {
		results <- sched.Run(runCtx, events)
	}()
	go run.drain(events, results)

	return run, nil
}
