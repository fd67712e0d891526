// Package dashboard renders a live terminal view of a running volley.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/volley/internal/metrics"
)

const (
	sparklineWidth  = 100
	maxBars         = 12
	maxListRows     = 10
	refreshInterval = 500 * time.Millisecond
)

// Source is the live run the dashboard reads from.
type Source interface {
	Stats() metrics.Stats
	Slots() []int64
	Distribution(widthMs int64) []metrics.Bucket
}

// RunInfo holds run parameters for display.
type RunInfo struct {
	RunID         string
	TargetURL     string
	Method        string
	Rate          uint32
	Rounds        uint32
	RoundInterval time.Duration
	Timeout       time.Duration
	ConfigFile    string
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	source       Source
	info         RunInfo
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	metricsPara    *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	distChart      *widgets.BarChart
	statusList     *widgets.List
	errorList      *widgets.List
}

// New creates a new Dashboard. shutdownFunc runs when the user presses q.
func New(source Source, info RunInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		source:       source,
		info:         info,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
	}
	d.initWidgets()
	d.setupGrid()
	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Counters"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}
	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Latency by Request"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.distChart = widgets.NewBarChart()
	d.distChart.Title = "Latency Distribution"
	d.distChart.BarWidth = 7
	d.distChart.BarColors = []ui.Color{ui.ColorGreen}
	d.distChart.NumStyles = []ui.Style{ui.NewStyle(ui.ColorBlack)}
	d.distChart.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"[No errors](fg:green)"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(0.6, d.summaryPara),
			ui.NewCol(0.4, d.progressGauge),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.distChart),
			ui.NewCol(0.35, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.update()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	stats := d.source.Stats()
	slots := d.source.Slots()
	dist := d.source.Distribution(distributionWidth(stats))

	d.mu.Lock()
	defer d.mu.Unlock()

	d.summaryPara.Text = formatSummary(d.info, stats)

	d.progressGauge.Percent = progressPercent(stats.Progress)
	d.progressGauge.Label = fmt.Sprintf("%d/%d (%d%%)", stats.Count, stats.Total, d.progressGauge.Percent)

	d.metricsPara.Text = fmt.Sprintf(
		"Completed:   %d\nSuccessful:  %d\nErrors:      %d\n  transport: %d\n  server:    %d\nRPS:         %.2f\nSent:        %d B\nReceived:    %d B",
		stats.Count,
		stats.Successes,
		stats.ErrorCount,
		stats.TransportErrors,
		stats.ServerErrors,
		stats.RequestsPerSec,
		stats.SentBytes,
		stats.ReceivedBytes,
	)

	series := recentLatencies(slots, sparklineWidth)
	if len(series) > 0 {
		d.latencySparkle.Sparklines[0].Data = series
		d.latencySparkle.Title = fmt.Sprintf("Latency by Request | Last: %.0fms | Max: %dms", series[len(series)-1], stats.MaxLatencyMs)
	}

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %dms\nMean: %.2fms\nP50:  %dms\nP90:  %dms\nP95:  %dms\nP99:  %dms\nMax:  %dms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
		stats.MaxLatencyMs,
	)

	labels, values := distributionBars(dist, maxBars)
	if len(values) > 0 {
		d.distChart.Labels = labels
		d.distChart.Data = values
	}

	d.statusList.Rows = formatStatusRows(stats.StatusCodes)
	d.errorList.Rows = formatErrorRows(stats.Errors)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

func formatSummary(info RunInfo, stats metrics.Stats) string {
	state := "running"
	switch {
	case stats.Done && stats.Cancelled:
		state = "cancelled"
	case stats.Done:
		state = "done"
	}
	return fmt.Sprintf("Target: %s\n%s\nRun: %s | Elapsed: %s | State: %s",
		info.TargetURL,
		formatRunParams(info),
		info.RunID,
		stats.Duration.Round(time.Second),
		state,
	)
}

func formatRunParams(info RunInfo) string {
	var parts []string
	if info.Method != "" && info.Method != "GET" {
		parts = append(parts, fmt.Sprintf("Method: %s", info.Method))
	}
	parts = append(parts, fmt.Sprintf("Rate: %d/round", info.Rate))
	parts = append(parts, fmt.Sprintf("Rounds: %d", info.Rounds))
	if info.RoundInterval > 0 {
		parts = append(parts, fmt.Sprintf("Interval: %s", info.RoundInterval))
	}
	if info.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", info.Timeout))
	}
	if info.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", info.ConfigFile))
	}
	return strings.Join(parts, " | ")
}

func progressPercent(fraction float64) int {
	p := int(fraction * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// recentLatencies returns up to limit of the highest-index completed slots,
// in index order.
func recentLatencies(slots []int64, limit int) []float64 {
	out := make([]float64, 0, limit)
	for i := len(slots) - 1; i >= 0 && len(out) < limit; i-- {
		if slots[i] == metrics.PendingSlot {
			continue
		}
		out = append(out, float64(slots[i]))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// distributionWidth picks a bucket width giving roughly maxBars bars.
func distributionWidth(stats metrics.Stats) int64 {
	span := stats.MaxLatencyMs - stats.MinLatencyMs
	w := span / maxBars
	if w < 1 {
		w = 1
	}
	return w
}

func distributionBars(buckets []metrics.Bucket, limit int) ([]string, []float64) {
	if len(buckets) > limit {
		buckets = mergeBuckets(buckets, limit)
	}
	labels := make([]string, len(buckets))
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		labels[i] = fmt.Sprintf("%d", b.FromMs)
		values[i] = float64(b.Count)
	}
	return labels, values
}

// mergeBuckets folds adjacent buckets together until at most limit remain.
func mergeBuckets(buckets []metrics.Bucket, limit int) []metrics.Bucket {
	group := (len(buckets) + limit - 1) / limit
	out := make([]metrics.Bucket, 0, limit)
	for i := 0; i < len(buckets); i += group {
		end := i + group
		if end > len(buckets) {
			end = len(buckets)
		}
		merged := metrics.Bucket{FromMs: buckets[i].FromMs, ToMs: buckets[end-1].ToMs}
		for _, b := range buckets[i:end] {
			merged.Count += b.Count
		}
		out = append(out, merged)
	}
	return out
}

func formatStatusRows(codes map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(codes)
	if len(rows) == 0 {
		return []string{"Awaiting data"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		switch row.Class {
		case "4xx":
			color = "yellow"
		case "5xx", "transport":
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%s %s](fg:%s) %d", strings.ToUpper(row.Class), row.Code, color, row.Count))
	}
	return formatted
}

func formatErrorRows(errs map[string]int) []string {
	if len(errs) == 0 {
		return []string{"[No errors](fg:green)"}
	}
	labels := make([]string, 0, len(errs))
	for label := range errs {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if errs[labels[i]] == errs[labels[j]] {
			return labels[i] < labels[j]
		}
		return errs[labels[i]] > errs[labels[j]]
	})
	if len(labels) > maxListRows {
		labels = labels[:maxListRows]
	}
	formatted := make([]string, 0, len(labels))
	for _, label := range labels {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", label, errs[label]))
	}
	return formatted
}
