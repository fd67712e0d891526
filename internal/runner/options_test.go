package runner

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/volley/internal/metrics"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		validate func(*testing.T, Options)
	}{
		{
			name:  "defaults",
			input: Options{},
			validate: func(t *testing.T, o Options) {
				if o.RoundInterval != time.Second {
					t.Errorf("RoundInterval = %v, want 1s", o.RoundInterval)
				}
				if o.LimiterFactory == nil {
					t.Error("LimiterFactory should not be nil")
				}
				if o.Logger == nil {
					t.Error("Logger should not be nil")
				}
			},
		},
		{
			name:  "negative interval corrected",
			input: Options{RoundInterval: -time.Second},
			validate: func(t *testing.T, o Options) {
				if o.RoundInterval != time.Second {
					t.Errorf("RoundInterval = %v, want 1s", o.RoundInterval)
				}
			},
		},
		{
			name:  "preserve valid values",
			input: Options{Rate: 50, Rounds: 4, RoundInterval: 250 * time.Millisecond},
			validate: func(t *testing.T, o Options) {
				if o.Rate != 50 || o.Rounds != 4 {
					t.Errorf("Rate/Rounds = %d/%d, want 50/4", o.Rate, o.Rounds)
				}
				if o.RoundInterval != 250*time.Millisecond {
					t.Errorf("RoundInterval = %v, want 250ms", o.RoundInterval)
				}
				if o.Total() != 200 {
					t.Errorf("Total() = %d, want 200", o.Total())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.input
			opts.normalize()
			tt.validate(t, opts)
		})
	}
}

func TestTotalDoesNotOverflow(t *testing.T) {
	o := Options{Rate: ^uint32(0), Rounds: ^uint32(0)}
	want := uint64(^uint32(0)) * uint64(^uint32(0))
	if o.Total() != want {
		t.Fatalf("Total() = %d, want %d", o.Total(), want)
	}
}

func TestLimiterFactory(t *testing.T) {
	opts := Options{RoundInterval: 200 * time.Millisecond}
	opts.normalize()

	limiter := opts.LimiterFactory(opts.RoundInterval)
	if limiter.Limit() != rate.Every(200*time.Millisecond) {
		t.Errorf("Limit = %v, want %v", limiter.Limit(), rate.Every(200*time.Millisecond))
	}
	if limiter.Burst() != 1 {
		t.Errorf("Burst = %d, want 1", limiter.Burst())
	}
}

func TestRoundPacerWaitCancelled(t *testing.T) {
	opts := Options{RoundInterval: time.Hour}
	opts.normalize()
	p := newRoundPacer(opts)
	p.start()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("Wait() error = nil, want context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Wait() did not return promptly after cancel")
	}
}

func TestRoundPacerWaitsOutInterval(t *testing.T) {
	opts := Options{RoundInterval: 60 * time.Millisecond}
	opts.normalize()
	p := newRoundPacer(opts)

	start := time.Now()
	p.start()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("Wait() returned after %v, want about 60ms", elapsed)
	}
}

func TestRequesterFunc(t *testing.T) {
	var got int
	f := RequesterFunc(func(ctx context.Context, index int) metrics.Outcome {
		got = index
		return metrics.Outcome{Index: index, StatusCode: "200"}
	})
	out := f.Do(context.Background(), 12)
	if got != 12 || out.StatusCode != "200" {
		t.Fatalf("RequesterFunc did not forward call: got=%d out=%+v", got, out)
	}
}
