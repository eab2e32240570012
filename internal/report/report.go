package report

import (
	"github.com/deepdefend/deepdefend-cli/internal/api"
)

// Severity tiers shared by the terminal renderer and the HTML export. The
// thresholds mirror the score bar coloring of the web UI.
const (
	SeverityHigh   = "high"   // pct >= 70
	SeverityMedium = "medium" // pct >= 40
	SeverityLow    = "low"
)

func Severity(pct int) string {
	switch {
	case pct >= 70:
		return SeverityHigh
	case pct >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Summary is the compact record emitted after a successful submission,
// independent of whether the full payload is retained.
type Summary struct {
	AnalysisID string `json:"analysis_id"`
	Verdict    string `json:"verdict"`
	Confidence int    `json:"confidence"`
	Timestamp  string `json:"timestamp"`
}

// Summarize reduces a full result to its summary form.
func Summarize(res *api.AnalysisResult) Summary {
	return Summary{
		AnalysisID: res.AnalysisID,
		Verdict:    res.Verdict,
		Confidence: RoundConfidence(res.Confidence),
		Timestamp:  res.Timestamp,
	}
}

// Report is the normalized view of an AnalysisResult: every score a clamped
// integer percentage, ready for rendering. Displayed and exported numbers
// both come from here so they always agree.
type Report struct {
	AnalysisID string
	Verdict    string
	Confidence int

	HasOverallScores bool
	VideoScore       int
	AudioScore       int
	CombinedScore    int

	DetailedAnalysis string
	Intervals        []IntervalRow

	TotalIntervalsAnalyzed int
	Filename               string
	Timestamp              string
}

// IntervalRow is one normalized suspicious interval.
type IntervalRow struct {
	Label        string
	VideoPct     int
	AudioPct     int
	VideoRegions []string
	AudioRegions []string
}

// Normalize builds the canonical display view from a raw result. Unknown
// verdicts pass through as opaque labels.
func Normalize(res *api.AnalysisResult) *Report {
	r := &Report{
		AnalysisID:             res.AnalysisID,
		Verdict:                res.Verdict,
		Confidence:             RoundConfidence(res.Confidence),
		DetailedAnalysis:       res.DetailedAnalysis,
		TotalIntervalsAnalyzed: res.TotalIntervalsAnalyzed,
		Filename:               res.Filename,
		Timestamp:              res.Timestamp,
	}

	if res.OverallScores != nil {
		r.HasOverallScores = true
		r.VideoScore = NormalizePercentPtr(res.OverallScores.OverallVideoScore)
		r.AudioScore = NormalizePercentPtr(res.OverallScores.OverallAudioScore)
		r.CombinedScore = NormalizePercentPtr(res.OverallScores.OverallCombinedScore)
	}

	for _, it := range res.SuspiciousIntervals {
		r.Intervals = append(r.Intervals, IntervalRow{
			Label:        it.Interval,
			VideoPct:     NormalizePercentPtr(it.VideoScore),
			AudioPct:     NormalizePercentPtr(it.AudioScore),
			VideoRegions: it.VideoRegions,
			AudioRegions: it.AudioRegions,
		})
	}

	return r
}

// SuspiciousOnly filters interval detail records to the single verdict that
// is surfaced to the user, preserving order. Everything else stays in the
// fetched set but is excluded from display.
func SuspiciousOnly(intervals []api.IntervalDetail) []api.IntervalDetail {
	out := make([]api.IntervalDetail, 0, len(intervals))
	for _, it := range intervals {
		if it.Verdict == api.VerdictSuspicious {
			out = append(out, it)
		}
	}
	return out
}
