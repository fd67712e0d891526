package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/dashboard"
	"github.com/torosent/volley/internal/engine"
	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/output"
	"github.com/torosent/volley/internal/promexport"
	"github.com/torosent/volley/internal/request"
	"github.com/torosent/volley/internal/threshold"
	"github.com/torosent/volley/internal/tracing"
)

const (
	progressInterval     = time.Second
	distributionWidthMs  = 10
	tracingFlushDeadline = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := configureLogging(cfg.LogLevel); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	tmpl, err := resolveTemplate(cfg)
	if err != nil {
		return err
	}

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), tracingFlushDeadline)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	plan := engine.PlanFromConfig(cfg)

	var observers []engine.Observer
	if cfg.LogErrors {
		observers = append(observers, newFailureLogger(log.StandardLogger()))
	}
	if cfg.MetricsAddr != "" {
		exporter := promexport.New(prometheus.Labels{"target": tmpl.String()})
		exporter.SetPlanned(plan.Total())
		serveCtx, stopServing := context.WithCancel(context.Background())
		defer stopServing()
		if _, err := exporter.Serve(serveCtx, cfg.MetricsAddr); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		observers = append(observers, exporter)
	}

	ctrl := engine.NewController(engine.Options{
		Timeout:        cfg.Timeout,
		Insecure:       cfg.Insecure,
		SequenceHeader: cfg.SequenceHeader,
		Tracing:        tp,
		Observers:      observers,
		Logger:         log.StandardLogger(),
	})
	r, err := ctrl.Start(ctx, tmpl, plan)
	if err != nil {
		return err
	}

	stopLive, err := startLiveView(cfg, tmpl, r, stdout)
	if err != nil {
		r.Cancel()
		<-r.Done()
		return err
	}
	<-r.Done()
	stopLive()

	stats := r.Stats()
	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	if cfg.JSONOutput {
		report := output.JSONReport{
			RunID:      r.ID(),
			Endpoint:   r.Endpoint(),
			Stats:      stats,
			Thresholds: output.SummarizeThresholds(results),
		}
		if err := output.PrintJSONReport(stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, stats)
		output.PrintThresholdResults(stdout, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, tmpl, r, stats, results); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

func configureLogging(level string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// startLiveView shows the dashboard or the progress line and returns the
// function that tears it down.
func startLiveView(cfg *config.Config, tmpl request.Template, r *engine.Run, stdout io.Writer) (func(), error) {
	if cfg.Dashboard {
		plan := r.Plan()
		dash, err := dashboard.New(r, dashboard.RunInfo{
			RunID:         r.ID(),
			TargetURL:     tmpl.URL,
			Method:        methodOf(tmpl),
			Rate:          plan.Rate,
			Rounds:        plan.Rounds,
			RoundInterval: plan.RoundInterval,
			Timeout:       cfg.Timeout,
			ConfigFile:    cfg.ConfigFile,
		}, r.Cancel)
		if err != nil {
			return nil, err
		}
		dash.Start()
		return dash.Stop, nil
	}
	if cfg.JSONOutput {
		return func() {}, nil
	}
	progress := output.NewProgressReporter(r, progressInterval, stdout)
	progress.Start()
	return func() {
		progress.Stop()
		fmt.Fprintln(stdout)
	}, nil
}

func writeHTMLReport(path string, tmpl request.Template, r *engine.Run, stats metrics.Stats, results []threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML report: %w", err)
	}
	plan := r.Plan()
	genErr := output.GenerateHTMLReport(f, output.ReportInput{
		Stats:            stats,
		Slots:            r.Slots(),
		Distribution:     r.Distribution(distributionWidthMs),
		ThresholdResults: results,
		Metadata: output.ReportMetadata{
			RunID:         r.ID(),
			TargetURL:     tmpl.URL,
			Method:        methodOf(tmpl),
			Rate:          plan.Rate,
			Rounds:        plan.Rounds,
			RoundInterval: plan.RoundInterval,
		},
	})
	closeErr := f.Close()
	if genErr != nil {
		return genErr
	}
	return closeErr
}
