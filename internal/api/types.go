package api

// Response shapes for the DeepDefend detection service. The service omits any
// optional field freely, so everything optional is a pointer or omitempty and
// consumers must not assume presence.

// AnalysisResult is the canonical response of POST /analyze. Immutable once
// received.
type AnalysisResult struct {
	AnalysisID             string            `json:"analysis_id"`
	Verdict                string            `json:"verdict"`
	Confidence             float64           `json:"confidence"`
	OverallScores          *OverallScores    `json:"overall_scores,omitempty"`
	DetailedAnalysis       string            `json:"detailed_analysis,omitempty"`
	SuspiciousIntervals    []IntervalFinding `json:"suspicious_intervals,omitempty"`
	TotalIntervalsAnalyzed int               `json:"total_intervals_analyzed,omitempty"`
	VideoInfo              *VideoInfo        `json:"video_info,omitempty"`
	Filename               string            `json:"filename,omitempty"`
	Timestamp              string            `json:"timestamp"`
}

// VerdictReal and VerdictDeepfake are the two verdicts the service documents.
// Anything else is rendered as an opaque label, never rejected.
const (
	VerdictReal     = "REAL"
	VerdictDeepfake = "DEEPFAKE"

	// VerdictSuspicious is the only per-interval verdict surfaced to the user.
	VerdictSuspicious = "SUSPICIOUS"
)

// OverallScores carries whole-video scores, nominally 0..1 but the service has
// been seen emitting 0..100. Normalization happens in the report package.
type OverallScores struct {
	OverallVideoScore    *float64 `json:"overall_video_score,omitempty"`
	OverallAudioScore    *float64 `json:"overall_audio_score,omitempty"`
	OverallCombinedScore *float64 `json:"overall_combined_score,omitempty"`
}

// IntervalFinding is one suspicious segment inside an AnalysisResult. The
// interval label ("0.0-2.0") is not guaranteed parseable.
type IntervalFinding struct {
	Interval     string   `json:"interval"`
	VideoScore   *float64 `json:"video_score,omitempty"`
	AudioScore   *float64 `json:"audio_score,omitempty"`
	VideoRegions []string `json:"video_regions,omitempty"`
	AudioRegions []string `json:"audio_regions,omitempty"`
}

// VideoInfo describes the uploaded file as the service saw it.
type VideoInfo struct {
	Duration   *float64 `json:"duration,omitempty"`
	FPS        *float64 `json:"fps,omitempty"`
	TotalFrames *int    `json:"total_frames,omitempty"`
	FileSizeMB *float64 `json:"file_size_mb,omitempty"`
}

// IntervalDetail is one record of GET /intervals/{analysis_id}.
type IntervalDetail struct {
	IntervalID    int     `json:"interval_id"`
	TimeRange     string  `json:"time_range"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	VideoScore    float64 `json:"video_score"`
	AudioScore    float64 `json:"audio_score"`
	CombinedScore float64 `json:"combined_score"`
	Verdict       string  `json:"verdict"`
}

// intervalsResponse is the envelope of GET /intervals/{analysis_id}.
type intervalsResponse struct {
	Intervals []IntervalDetail `json:"intervals"`
}

// HistoryItem is one summary record of GET /history. Server-owned, read-only.
type HistoryItem struct {
	AnalysisID    string  `json:"analysis_id"`
	Filename      string  `json:"filename"`
	Verdict       string  `json:"verdict"`
	Confidence    float64 `json:"confidence"`
	Timestamp     string  `json:"timestamp"`
	VideoDuration float64 `json:"video_duration"`
}

// StatsSnapshot is the aggregate counter set of GET /stats. Server-owned.
type StatsSnapshot struct {
	TotalAnalyses     int     `json:"total_analyses"`
	DeepfakesDetected int     `json:"deepfakes_detected"`
	RealVideos        int     `json:"real_videos"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgVideoScore     float64 `json:"avg_video_score"`
	AvgAudioScore     float64 `json:"avg_audio_score"`
}
