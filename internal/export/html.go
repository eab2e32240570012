package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/report"
)

// htmlTemplate is the complete self-contained report document: inlined
// styles, no external references. Every service-controlled string passes
// through html/template's contextual escaping.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DeepDefend Report</title>
<style>
:root {
  --ink: #1f2430;
  --muted: #6b7280;
  --line: #e5e7eb;
  --panel: #f8fafc;
  --high: #dc2626;
  --medium: #d97706;
  --low: #2563eb;
}
* { box-sizing: border-box; }
body { margin: 0 auto; max-width: 860px; padding: 32px 20px; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; color: var(--ink); }
header { display: flex; align-items: center; justify-content: space-between; gap: 16px; border-bottom: 1px solid var(--line); padding-bottom: 16px; }
h1 { font-size: 22px; margin: 0; }
h2 { font-size: 16px; margin: 28px 0 12px; }
.badge { display: inline-block; padding: 4px 12px; border-radius: 6px; color: #fff; font-weight: 600; font-size: 14px; background: {{.VerdictColor}}; }
.generated { color: var(--muted); font-size: 12px; }
.bar { height: 8px; border-radius: 4px; background: var(--line); overflow: hidden; }
.bar > span { display: block; height: 100%; background: {{.VerdictColor}}; }
.score { margin: 12px 0; }
.score .label { display: flex; justify-content: space-between; font-size: 14px; margin-bottom: 6px; }
.score .label .pct { font-weight: 600; }
.score.high .label .pct { color: var(--high); }
.score.medium .label .pct { color: var(--medium); }
.score.low .label .pct { color: var(--low); }
.detail { background: var(--panel); border: 1px solid var(--line); border-radius: 8px; padding: 16px; font-size: 14px; white-space: pre-wrap; }
.interval { border: 1px solid var(--line); border-radius: 8px; padding: 12px 16px; margin-bottom: 10px; }
.interval .head { display: flex; justify-content: space-between; font-size: 14px; font-weight: 600; margin-bottom: 8px; }
.regions { color: var(--muted); font-size: 13px; margin-top: 8px; }
.regions b { color: var(--ink); font-weight: 600; }
footer { margin-top: 32px; border-top: 1px solid var(--line); padding-top: 12px; color: var(--muted); font-size: 12px; }
</style>
</head>
<body>
<header>
  <div>
    <h1>DeepDefend &ndash; Deepfake Analysis Report</h1>
    <p class="generated">Generated {{.GeneratedAt}}</p>
  </div>
  <span class="badge">{{.Report.Verdict}}</span>
</header>

<h2>Confidence</h2>
<div class="score">
  <div class="label"><span>Confidence</span><span class="pct">{{.Report.Confidence}}%</span></div>
  <div class="bar"><span style="width: {{.Report.Confidence}}%"></span></div>
</div>

{{if .Report.HasOverallScores}}
<h2>Overall Scores</h2>
{{template "scoreRow" dict "Label" "Overall Video Score" "Pct" .Report.VideoScore}}
{{template "scoreRow" dict "Label" "Overall Audio Score" "Pct" .Report.AudioScore}}
{{template "scoreRow" dict "Label" "Overall Combined Score" "Pct" .Report.CombinedScore}}
{{end}}

{{if .Report.DetailedAnalysis}}
<h2>Detailed Report</h2>
<div class="detail">{{.Report.DetailedAnalysis}}</div>
{{end}}

{{if .Report.Intervals}}
<h2>Suspicious Intervals</h2>
{{range .Report.Intervals}}
<div class="interval">
  <div class="head"><span>Interval {{.Label}}</span><span>Video {{.VideoPct}}% &middot; Audio {{.AudioPct}}%</span></div>
  {{template "scoreRow" dict "Label" "Video Score" "Pct" .VideoPct}}
  {{template "scoreRow" dict "Label" "Audio Score" "Pct" .AudioPct}}
  <p class="regions"><b>Video regions:</b> {{join .VideoRegions}}</p>
  <p class="regions"><b>Audio regions:</b> {{join .AudioRegions}}</p>
</div>
{{end}}
{{end}}

<footer>
  Analysis {{.Report.AnalysisID}} &middot; analyzed {{.Report.Timestamp}} &middot; DeepDefend
</footer>
</body>
</html>
{{define "scoreRow"}}
<div class="score {{severity .Pct}}">
  <div class="label"><span>{{.Label}}</span><span class="pct">{{.Pct}}%</span></div>
  <div class="bar"><span style="width: {{.Pct}}%"></span></div>
</div>
{{end}}`

// Verdict color tokens: DEEPFAKE red, REAL green, anything else neutral.
func verdictColor(verdict string) string {
	switch strings.ToUpper(verdict) {
	case api.VerdictDeepfake:
		return "#dc2626"
	case api.VerdictReal:
		return "#16a34a"
	default:
		return "#6b7280"
	}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severity": report.Severity,
	"join": func(regions []string) string {
		if len(regions) == 0 {
			return "none"
		}
		return strings.Join(regions, ", ")
	},
	"dict": func(pairs ...any) map[string]any {
		m := make(map[string]any, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			key, _ := pairs[i].(string)
			m[key] = pairs[i+1]
		}
		return m
	},
}).Parse(htmlTemplate))

type htmlData struct {
	Report       *report.Report
	GeneratedAt  string
	VerdictColor template.CSS
}

// RenderHTML produces the self-contained report document. generatedAt is the
// export moment, not the analysis timestamp, and is injected so renders are
// reproducible in tests.
func RenderHTML(rep *report.Report, generatedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, htmlData{
		Report:       rep,
		GeneratedAt:  generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		VerdictColor: template.CSS(verdictColor(rep.Verdict)),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
