package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

// maxChartPoints bounds the per-request latency series embedded in the report.
const maxChartPoints = 2000

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Stats            metrics.Stats
	StatusRows       []metrics.StatusBucket
	Distribution     []metrics.Bucket
	MaxBucketCount   int64
	ThresholdSummary *ThresholdSummary
	SeriesJSON       template.JS
	HasSeries        bool
	Metadata         ReportMetadata
}

// ReportMetadata describes the run the report was produced from.
type ReportMetadata struct {
	RunID         string
	TargetURL     string
	Method        string
	Rate          uint32
	Rounds        uint32
	RoundInterval time.Duration
}

// ReportInput bundles the run outputs rendered into the HTML report.
type ReportInput struct {
	Stats            metrics.Stats
	Slots            []int64
	Distribution     []metrics.Bucket
	ThresholdResults []threshold.Result
	Metadata         ReportMetadata
}

type latencySeries struct {
	Index   []int    `json:"index"`
	Latency []*int64 `json:"latency"`
}

// GenerateHTMLReport generates a standalone HTML report with embedded charts.
func GenerateHTMLReport(w io.Writer, in ReportInput) error {
	series := downsampleSlots(in.Slots, maxChartPoints)
	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal latency series: %w", err)
	}

	var maxCount int64
	for _, b := range in.Distribution {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Stats:            in.Stats,
		StatusRows:       metrics.FlattenStatusBuckets(in.Stats.StatusCodes),
		Distribution:     in.Distribution,
		MaxBucketCount:   maxCount,
		ThresholdSummary: SummarizeThresholds(in.ThresholdResults),
		SeriesJSON:       template.JS(seriesJSON),
		HasSeries:        len(series.Index) > 0,
		Metadata:         in.Metadata,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatMs": func(ms int64) string {
			return metrics.Latency(ms).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatBytes": FormatBytes,
		"formatPercent": func(part int64, total int) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
		"barWidth": func(count, max int64) string {
			if max == 0 {
				return "0"
			}
			return fmt.Sprintf("%.1f", float64(count)/float64(max)*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// downsampleSlots keeps every k-th slot so the series has at most limit
// points. Pending slots become nulls.
func downsampleSlots(slots []int64, limit int) latencySeries {
	if len(slots) == 0 || limit <= 0 {
		return latencySeries{}
	}
	step := (len(slots) + limit - 1) / limit
	out := latencySeries{
		Index:   make([]int, 0, len(slots)/step+1),
		Latency: make([]*int64, 0, len(slots)/step+1),
	}
	for i := 0; i < len(slots); i += step {
		out.Index = append(out.Index, i)
		if slots[i] == metrics.PendingSlot {
			out.Latency = append(out.Latency, nil)
			continue
		}
		v := slots[i]
		out.Latency = append(out.Latency, &v)
	}
	return out
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Volley Load Test Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: #f3f5f8;
            color: #1f2937;
            line-height: 1.5;
            padding: 24px;
        }
        .page { max-width: 1280px; margin: 0 auto; background: #fff; border-radius: 6px; overflow: hidden; }
        header { background: #0f766e; color: #fff; padding: 28px 36px; }
        header h1 { font-size: 1.8rem; margin-bottom: 6px; }
        header .meta { font-size: 0.9rem; opacity: 0.9; }
        main { padding: 36px; }
        .tiles { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 16px; margin-bottom: 36px; }
        .tile { background: #f9fafb; border-top: 3px solid #0f766e; border-radius: 4px; padding: 16px; }
        .tile.ok { border-top-color: #16a34a; }
        .tile.bad { border-top-color: #dc2626; }
        .tile h3 { font-size: 0.8rem; text-transform: uppercase; color: #6b7280; margin-bottom: 6px; }
        .tile .value { font-size: 1.8rem; font-weight: 700; }
        .tile .sub { font-size: 0.8rem; color: #6b7280; }
        section { margin-bottom: 36px; }
        section h2 { font-size: 1.3rem; border-bottom: 1px solid #e5e7eb; padding-bottom: 8px; margin-bottom: 16px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f9fafb; font-size: 0.8rem; text-transform: uppercase; color: #4b5563; }
        .bar { background: #14b8a6; height: 12px; border-radius: 2px; }
        .pass { color: #166534; font-weight: 600; }
        .fail { color: #991b1b; font-weight: 600; }
        #latency-chart { width: 100%; height: 320px; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
<div class="page">
    <header>
        <h1>Volley Load Test Report</h1>
        {{if .Metadata.TargetURL}}<div class="meta">{{.Metadata.Method}} {{.Metadata.TargetURL}}</div>{{end}}
        <div class="meta">Run {{.Metadata.RunID}} | {{.Metadata.Rate}} requests x {{.Metadata.Rounds}} rounds every {{formatDuration .Metadata.RoundInterval}}</div>
        <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Stats.Duration}}{{if .Stats.Cancelled}} | Cancelled{{end}}</div>
    </header>
    <main>
        <div class="tiles">
            <div class="tile">
                <h3>Planned Requests</h3>
                <div class="value">{{.Stats.Total}}</div>
                <div class="sub">{{.Stats.Count}} completed</div>
            </div>
            <div class="tile ok">
                <h3>Successful</h3>
                <div class="value">{{.Stats.Successes}}</div>
                <div class="sub">{{formatPercent .Stats.Successes .Stats.Total}}%</div>
            </div>
            <div class="tile bad">
                <h3>Errors</h3>
                <div class="value">{{.Stats.ErrorCount}}</div>
                <div class="sub">{{.Stats.TransportErrors}} transport, {{.Stats.ServerErrors}} server</div>
            </div>
            <div class="tile">
                <h3>Requests/sec</h3>
                <div class="value">{{formatFloat .Stats.RequestsPerSec}}</div>
                <div class="sub">{{formatBytes .Stats.SentBytes}} sent, {{formatBytes .Stats.ReceivedBytes}} received</div>
            </div>
        </div>

        <section>
            <h2>Latency</h2>
            <table>
                <tr><th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr>
                <tr>
                    <td>{{formatMs .Stats.MinLatencyMs}}</td>
                    <td>{{formatDuration .Stats.MeanLatency}}</td>
                    <td>{{formatMs .Stats.P50LatencyMs}}</td>
                    <td>{{formatMs .Stats.P90LatencyMs}}</td>
                    <td>{{formatMs .Stats.P95LatencyMs}}</td>
                    <td>{{formatMs .Stats.P99LatencyMs}}</td>
                    <td>{{formatMs .Stats.MaxLatencyMs}}</td>
                </tr>
            </table>
        </section>

        {{if .HasSeries}}
        <section>
            <h2>Latency by Request</h2>
            <div id="latency-chart"></div>
        </section>
        {{end}}

        {{if .Distribution}}
        <section>
            <h2>Latency Distribution</h2>
            <table>
                <tr><th>Bucket</th><th>Count</th><th style="width: 60%"></th></tr>
                {{range .Distribution}}
                <tr>
                    <td>{{.}}</td>
                    <td>{{.Count}}</td>
                    <td><div class="bar" style="width: {{barWidth .Count $.MaxBucketCount}}%"></div></td>
                </tr>
                {{end}}
            </table>
        </section>
        {{end}}

        {{if .StatusRows}}
        <section>
            <h2>Status Codes</h2>
            <table>
                <tr><th>Class</th><th>Code</th><th>Count</th></tr>
                {{range .StatusRows}}
                <tr><td>{{.Class}}</td><td>{{.Code}}</td><td>{{.Count}}</td></tr>
                {{end}}
            </table>
        </section>
        {{end}}

        {{if .Stats.Errors}}
        <section>
            <h2>Errors</h2>
            <table>
                <tr><th>Error</th><th>Count</th></tr>
                {{range $label, $count := .Stats.Errors}}
                <tr><td>{{$label}}</td><td>{{$count}}</td></tr>
                {{end}}
            </table>
        </section>
        {{end}}

        {{if .ThresholdSummary}}
        <section>
            <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
            <table>
                <tr><th>Threshold</th><th>Metric</th><th>Expected</th><th>Actual</th><th>Result</th></tr>
                {{range .ThresholdSummary.Results}}
                <tr>
                    <td>{{.Threshold}}</td>
                    <td>{{.Metric}} ({{.Aggregate}})</td>
                    <td>{{.Operator}} {{formatFloat .Expected}}</td>
                    <td>{{formatFloat .Actual}}</td>
                    <td>{{if .Pass}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</td>
                </tr>
                {{end}}
            </table>
        </section>
        {{end}}
    </main>
</div>

{{if .HasSeries}}
<script>
    const series = {{.SeriesJSON}};
    const el = document.getElementById('latency-chart');
    new uPlot({
        width: el.offsetWidth,
        height: 320,
        scales: { x: { time: false } },
        series: [
            { label: "Request" },
            { label: "Latency (ms)", stroke: "#0f766e", width: 1, points: { show: false } }
        ],
        axes: [
            { label: "Sequence index" },
            { label: "Latency (ms)" }
        ]
    }, [series.index, series.latency], el);
</script>
{{end}}
</body>
</html>
`
