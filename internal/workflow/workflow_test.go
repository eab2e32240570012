package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/report"
)

// stubSubmitter lets tests script the transport outcome.
type stubSubmitter struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	result  *api.AnalysisResult
	err     error
	gotPath string
}

func (s *stubSubmitter) SubmitAnalysis(ctx context.Context, videoPath string, intervalDuration float64) (*api.AnalysisResult, error) {
	s.mu.Lock()
	s.calls++
	s.gotPath = videoPath
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.result, s.err
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func writeVideo(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write test video: %v", err)
	}
	return path
}

func TestSubmitWithoutSelection(t *testing.T) {
	stub := &stubSubmitter{}
	w := New(stub)

	_, err := w.Submit(context.Background(), 2.0)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if w.State() != Idle {
		t.Errorf("Expected state to remain idle, got %s", w.State())
	}
	if stub.callCount() != 0 {
		t.Error("Expected no network call")
	}
}

func TestSelectValidation(t *testing.T) {
	w := New(&stubSubmitter{}, WithMaxUploadBytes(1024))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "absent.mp4")},
		{"unsupported extension", writeVideo(t, "notes.txt", 10)},
		{"oversized file", writeVideo(t, "big.mp4", 4096)},
		{"directory", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Select(tt.path)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if w.State() != Idle {
				t.Errorf("Failed selection must not change state, got %s", w.State())
			}
		})
	}
}

func TestSelectAcceptsSupportedFormats(t *testing.T) {
	w := New(&stubSubmitter{})
	for _, name := range []string{"a.mp4", "b.MOV", "c.avi", "d.mkv", "e.webm"} {
		if err := w.Select(writeVideo(t, name, 16)); err != nil {
			t.Errorf("Expected %s to be selectable: %v", name, err)
		}
	}
	if w.State() != Selected {
		t.Errorf("Expected selected state, got %s", w.State())
	}
}

func TestSubmitSuccessEmitsSummary(t *testing.T) {
	score := 0.81
	stub := &stubSubmitter{result: &api.AnalysisResult{
		AnalysisID:    "a1",
		Verdict:       api.VerdictDeepfake,
		Confidence:    92.4,
		OverallScores: &api.OverallScores{OverallVideoScore: &score},
		Timestamp:     "2024-01-01T00:00:00Z",
	}}

	w := New(stub)
	var got []report.Summary
	w.OnResult(func(s report.Summary) {
		got = append(got, s)
	})

	videoPath := writeVideo(t, "clip.mp4", 64)
	if err := w.Select(videoPath); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	result, err := w.Submit(context.Background(), 2.0)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if w.State() != Succeeded {
		t.Errorf("Expected succeeded, got %s", w.State())
	}
	if stub.gotPath != videoPath {
		t.Errorf("Expected submission of %s, got %s", videoPath, stub.gotPath)
	}
	if result.AnalysisID != "a1" {
		t.Errorf("Unexpected result: %+v", result)
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 summary emission, got %d", len(got))
	}
	want := report.Summary{AnalysisID: "a1", Verdict: "DEEPFAKE", Confidence: 92, Timestamp: "2024-01-01T00:00:00Z"}
	if got[0] != want {
		t.Errorf("Expected summary %+v, got %+v", want, got[0])
	}
}

func TestSubmitFailureTransitionsToFailed(t *testing.T) {
	reqErr := &api.RequestError{Message: "file too large", Status: 413, URL: "http://svc/api/analyze"}
	stub := &stubSubmitter{err: reqErr}

	w := New(stub)
	if err := w.Select(writeVideo(t, "clip.mp4", 64)); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	_, err := w.Submit(context.Background(), 2.0)
	if !errors.Is(err, reqErr) {
		t.Fatalf("Expected the request error, got %v", err)
	}
	if w.State() != Failed {
		t.Errorf("Expected failed, got %s", w.State())
	}

	_, gotErr := w.Result()
	if gotErr == nil || gotErr.Error() != "file too large [413] http://svc/api/analyze" {
		t.Errorf("Unexpected stored error: %v", gotErr)
	}

	// Failure recovers through a fresh selection.
	if err := w.Select(writeVideo(t, "retry.mp4", 64)); err != nil {
		t.Fatalf("Select after failure should work: %v", err)
	}
	if w.State() != Selected {
		t.Errorf("Expected selected, got %s", w.State())
	}
}

func TestAtMostOneInFlight(t *testing.T) {
	block := make(chan struct{})
	stub := &stubSubmitter{
		block:  block,
		result: &api.AnalysisResult{AnalysisID: "a1", Verdict: "REAL", Confidence: 50, Timestamp: "2024-01-01T00:00:00Z"},
	}

	w := New(stub)
	if err := w.Select(writeVideo(t, "clip.mp4", 64)); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := w.Submit(context.Background(), 2.0); err != nil {
			t.Errorf("First submit failed: %v", err)
		}
	}()

	// Wait for the first submission to be in flight.
	for w.State() != InFlight {
		time.Sleep(time.Millisecond)
	}

	if _, err := w.Submit(context.Background(), 2.0); err == nil {
		t.Error("Expected second submit to be rejected while in flight")
	}
	if err := w.Select(writeVideo(t, "other.mp4", 64)); err == nil {
		t.Error("Expected selection to be rejected while in flight")
	}

	close(block)
	<-done

	if stub.callCount() != 1 {
		t.Errorf("Expected exactly one submission, got %d", stub.callCount())
	}
	if w.State() != Succeeded {
		t.Errorf("Expected succeeded, got %s", w.State())
	}
}
