package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestVideo creates a throwaway file standing in for an upload.
func writeTestVideo(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write test video: %v", err)
	}
	return path
}

func TestSubmitAnalysis(t *testing.T) {
	var gotQuery, gotField, gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("interval_duration")

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing multipart field 'file': %v", err)
		}
		defer file.Close()
		gotField = "file"
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"analysis_id": "a1",
			"verdict": "DEEPFAKE",
			"confidence": 92.4,
			"overall_scores": {"overall_video_score": 0.81},
			"timestamp": "2024-01-01T00:00:00Z"
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	videoPath := writeTestVideo(t, 1536*1024)

	result, err := client.SubmitAnalysis(context.Background(), videoPath, 2.0)
	if err != nil {
		t.Fatalf("SubmitAnalysis failed: %v", err)
	}

	if gotQuery != "2" {
		t.Errorf("Expected interval_duration query '2', got %q", gotQuery)
	}
	if gotField != "file" {
		t.Error("Upload did not use multipart field 'file'")
	}
	if gotFilename != "clip.mp4" {
		t.Errorf("Expected filename 'clip.mp4', got %q", gotFilename)
	}

	if result.AnalysisID != "a1" {
		t.Errorf("Expected analysis_id 'a1', got %q", result.AnalysisID)
	}
	if result.Verdict != VerdictDeepfake {
		t.Errorf("Expected verdict DEEPFAKE, got %q", result.Verdict)
	}
	if result.Confidence != 92.4 {
		t.Errorf("Expected confidence 92.4, got %v", result.Confidence)
	}
	if result.OverallScores == nil || result.OverallScores.OverallVideoScore == nil {
		t.Fatal("Expected overall_video_score to be present")
	}
	if *result.OverallScores.OverallVideoScore != 0.81 {
		t.Errorf("Expected overall_video_score 0.81, got %v", *result.OverallScores.OverallVideoScore)
	}
	if result.Timestamp != "2024-01-01T00:00:00Z" {
		t.Errorf("Unexpected timestamp %q", result.Timestamp)
	}
}

func TestSubmitAnalysisErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		fmt.Fprint(w, `{"detail": "file too large"}`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	videoPath := writeTestVideo(t, 64)

	_, err := client.SubmitAnalysis(context.Background(), videoPath, 2.0)
	if err == nil {
		t.Fatal("Expected error for 413 response")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.Status != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", reqErr.Status)
	}
	if reqErr.Message != "file too large" {
		t.Errorf("Expected message 'file too large', got %q", reqErr.Message)
	}

	wantURL := srv.URL + "/api/analyze?interval_duration=2"
	want := "file too large [413] " + wantURL
	if err.Error() != want {
		t.Errorf("Expected error %q, got %q", want, err.Error())
	}
}

func TestErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field wins", `{"error": "boom", "detail": "d", "message": "m"}`, "boom"},
		{"detail before message", `{"detail": "d", "message": "m"}`, "d"},
		{"message as last resort", `{"message": "m"}`, "m"},
		{"empty body falls back", `{}`, "Request failed"},
		{"non-json body falls back", `<html>502 Bad Gateway</html>`, "Request failed"},
		{"non-string field ignored", `{"error": 42, "detail": "d"}`, "d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := New(srv.URL + "/api")
			_, err := client.Stats(context.Background())
			if err == nil {
				t.Fatal("Expected error for 502 response")
			}

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("Expected *RequestError, got %T", err)
			}
			if reqErr.Message != tt.want {
				t.Errorf("Expected message %q, got %q", tt.want, reqErr.Message)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/history" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("Expected limit=10, got %q", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"analysis_id": "a1", "filename": "one.mp4", "verdict": "REAL", "confidence": 97.2, "timestamp": "2024-01-01T00:00:00Z", "video_duration": 12.5},
			{"analysis_id": "a2", "filename": "two.mp4", "verdict": "DEEPFAKE", "confidence": 88, "timestamp": "2024-01-02T00:00:00Z", "video_duration": 8}
		]`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	items, err := client.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 history items, got %d", len(items))
	}
	if items[0].AnalysisID != "a1" || items[0].Verdict != VerdictReal {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[1].Filename != "two.mp4" || items[1].VideoDuration != 8 {
		t.Errorf("Unexpected second item: %+v", items[1])
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_analyses": 42, "deepfakes_detected": 7, "real_videos": 35, "avg_confidence": 91.5, "avg_video_score": 0.4, "avg_audio_score": 0.3}`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	stats, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalAnalyses != 42 || stats.DeepfakesDetected != 7 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.AvgConfidence != 91.5 {
		t.Errorf("Expected avg_confidence 91.5, got %v", stats.AvgConfidence)
	}
}

func TestIntervals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/intervals/a1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"intervals": [
			{"interval_id": 1, "time_range": "0.0-2.0", "start": 0, "end": 2, "combined_score": 0.9, "verdict": "SUSPICIOUS"},
			{"interval_id": 2, "time_range": "2.0-4.0", "start": 2, "end": 4, "combined_score": 0.1, "verdict": "CLEAN"}
		]}`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	intervals, err := client.Intervals(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}

	// The client returns the full set; SUSPICIOUS filtering is display-side.
	if len(intervals) != 2 {
		t.Fatalf("Expected 2 intervals, got %d", len(intervals))
	}
	if intervals[0].Verdict != VerdictSuspicious || intervals[1].Verdict != "CLEAN" {
		t.Errorf("Unexpected verdicts: %+v", intervals)
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json at all`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	stats, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Expected undecodable success body to degrade, got error: %v", err)
	}
	if stats.TotalAnalyses != 0 {
		t.Errorf("Expected zero-value stats, got %+v", stats)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL + "/api")
	_, err := client.Stats(context.Background())
	if err == nil {
		t.Fatal("Expected error against closed server")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.Status != 0 {
		t.Errorf("Expected status 0 for network failure, got %d", reqErr.Status)
	}
	if !strings.Contains(err.Error(), srv.URL) {
		t.Errorf("Expected URL in error, got %q", err.Error())
	}
}

func TestIntervalDurationDefaulting(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("interval_duration")
		fmt.Fprint(w, `{"analysis_id": "a1", "verdict": "REAL", "confidence": 50, "timestamp": "2024-01-01T00:00:00Z"}`)
	}))
	defer srv.Close()

	client := New(srv.URL + "/api")
	videoPath := writeTestVideo(t, 64)

	if _, err := client.SubmitAnalysis(context.Background(), videoPath, 0); err != nil {
		t.Fatalf("SubmitAnalysis failed: %v", err)
	}
	if gotQuery != "2" {
		t.Errorf("Expected non-positive interval to default to 2, got %q", gotQuery)
	}

	if _, err := client.SubmitAnalysis(context.Background(), videoPath, 1.5); err != nil {
		t.Fatalf("SubmitAnalysis failed: %v", err)
	}
	if gotQuery != "1.5" {
		t.Errorf("Expected interval 1.5 serialized as '1.5', got %q", gotQuery)
	}
}
