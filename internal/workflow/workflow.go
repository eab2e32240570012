package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/report"
	"github.com/deepdefend/deepdefend-cli/pkg/logger"
)

// State of one submission workflow instance.
type State int

const (
	Idle State = iota
	Selected
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ValidationError is a local pre-network failure: nothing was submitted and
// the workflow state did not change.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Submitter is the single transport operation the workflow depends on.
type Submitter interface {
	SubmitAnalysis(ctx context.Context, videoPath string, intervalDuration float64) (*api.AnalysisResult, error)
}

// Listener receives the compact summary emitted after a successful
// submission.
type Listener func(report.Summary)

// allowedExtensions matches what the upload surface accepts.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// Workflow owns the upload → analyze state machine for one surface. At most
// one submission is in flight per instance; independent surfaces run their
// own instances. There is no cancellation once in flight: the request runs
// to completion or failure.
type Workflow struct {
	client Submitter
	log    *logger.Logger

	maxUploadBytes int64

	mu        sync.Mutex
	state     State
	videoPath string
	videoSize int64
	result    *api.AnalysisResult
	err       error
	listeners []Listener
}

type Option func(*Workflow)

// WithMaxUploadBytes caps the selectable file size. Zero disables the check.
func WithMaxUploadBytes(n int64) Option {
	return func(w *Workflow) {
		w.maxUploadBytes = n
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(w *Workflow) {
		w.log = log
	}
}

func New(client Submitter, opts ...Option) *Workflow {
	w := &Workflow{
		client: client,
		log:    logger.GetLogger(),
		state:  Idle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SelectedFile returns the currently selected video and its size.
func (w *Workflow) SelectedFile() (string, int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoPath, w.videoSize
}

// Result returns the terminal outcome: the full payload after Succeeded, the
// failure after Failed.
func (w *Workflow) Result() (*api.AnalysisResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.err
}

// OnResult registers a listener for the post-success summary.
func (w *Workflow) OnResult(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// Select validates and stages a video file. Allowed from every state except
// InFlight; a failed validation leaves the previous selection and state
// untouched.
func (w *Workflow) Select(videoPath string) error {
	info, err := os.Stat(videoPath)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("cannot read video file: %v", err)}
	}
	if info.IsDir() {
		return &ValidationError{Reason: fmt.Sprintf("%s is a directory, not a video file", videoPath)}
	}

	ext := strings.ToLower(filepath.Ext(videoPath))
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: fmt.Sprintf("unsupported video format %q (supported: mp4, mov, avi, mkv, webm)", ext)}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == InFlight {
		return &ValidationError{Reason: "an analysis is already in progress"}
	}
	if w.maxUploadBytes > 0 && info.Size() > w.maxUploadBytes {
		return &ValidationError{Reason: fmt.Sprintf("video is %s, exceeding the %s upload limit",
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(w.maxUploadBytes)))}
	}

	w.state = Selected
	w.videoPath = videoPath
	w.videoSize = info.Size()
	w.err = nil
	w.log.Debugf("selected %s (%s)", videoPath, humanize.Bytes(uint64(info.Size())))
	return nil
}

// Submit sends the selected video for analysis and blocks until the service
// answers. Submitting with no file selected fails synchronously with a
// ValidationError and does not transition; submitting while a request is in
// flight is rejected the same way.
func (w *Workflow) Submit(ctx context.Context, intervalDuration float64) (*api.AnalysisResult, error) {
	w.mu.Lock()
	if w.state == InFlight {
		w.mu.Unlock()
		return nil, &ValidationError{Reason: "an analysis is already in progress"}
	}
	if w.state != Selected || w.videoPath == "" {
		w.mu.Unlock()
		return nil, &ValidationError{Reason: "please select a video file first"}
	}
	videoPath := w.videoPath
	w.state = InFlight
	w.result = nil
	w.err = nil
	w.mu.Unlock()

	w.log.Infof("submitting %s for analysis", filepath.Base(videoPath))
	result, err := w.client.SubmitAnalysis(ctx, videoPath, intervalDuration)

	w.mu.Lock()
	if err != nil {
		w.state = Failed
		w.err = err
		w.mu.Unlock()
		w.log.Warnf("analysis failed: %v", err)
		return nil, err
	}
	w.state = Succeeded
	w.result = result
	listeners := make([]Listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	summary := report.Summarize(result)
	w.log.Infof("analysis %s finished: %s (%d%%)", summary.AnalysisID, summary.Verdict, summary.Confidence)
	for _, l := range listeners {
		l(summary)
	}
	return result, nil
}
