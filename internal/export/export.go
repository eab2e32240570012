package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/report"
	"github.com/deepdefend/deepdefend-cli/pkg/utils"
)

// ExportError marks a failed artifact write. Export failures are always
// surfaced to the caller; they never affect the already-rendered report.
type ExportError struct {
	Artifact string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %s artifact: %v", e.Artifact, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// sanitizeTimestamp makes an ISO-8601 timestamp filename-safe by replacing
// colons and dots with dashes.
func sanitizeTimestamp(ts string) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

// JSONFilename follows the pattern deepdefend-<verdict>-<timestamp>.json.
func JSONFilename(verdict, timestamp string) string {
	return fmt.Sprintf("deepdefend-%s-%s.json", strings.ToLower(verdict), sanitizeTimestamp(timestamp))
}

// HTMLFilename follows the pattern deepdefend-report-<verdict>-<timestamp>.html.
func HTMLFilename(verdict, timestamp string) string {
	return fmt.Sprintf("deepdefend-report-%s-%s.html", strings.ToLower(verdict), sanitizeTimestamp(timestamp))
}

// RenderJSON serializes the full raw result with stable two-space
// indentation. Parsing the output reproduces the input field for field.
func RenderJSON(res *api.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSON renders the JSON snapshot into dir and returns the artifact path.
func WriteJSON(res *api.AnalysisResult, dir string) (string, error) {
	data, err := RenderJSON(res)
	if err != nil {
		return "", &ExportError{Artifact: "json", Err: err}
	}
	path := filepath.Join(dir, JSONFilename(res.Verdict, res.Timestamp))
	if err := writeArtifact(path, data); err != nil {
		return "", &ExportError{Artifact: "json", Err: err}
	}
	return path, nil
}

// WriteHTML renders the self-contained HTML report into dir and returns the
// artifact path. generatedAt is stamped into the document body; the filename
// uses the analysis timestamp so repeated exports of one result collide.
func WriteHTML(rep *report.Report, generatedAt time.Time, dir string) (string, error) {
	data, err := RenderHTML(rep, generatedAt)
	if err != nil {
		return "", &ExportError{Artifact: "html", Err: err}
	}
	path := filepath.Join(dir, HTMLFilename(rep.Verdict, rep.Timestamp))
	if err := writeArtifact(path, data); err != nil {
		return "", &ExportError{Artifact: "html", Err: err}
	}
	return path, nil
}

// writeArtifact stages the bytes in a hidden temp file, releases the handle,
// then renames into place so a failed export never leaves a partial artifact.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := utils.MakeDir(dir); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	staging := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("staging artifact: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		utils.DeleteFile(staging)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		utils.DeleteFile(staging)
		return fmt.Errorf("closing artifact: %w", err)
	}

	if err := utils.MoveFile(staging, path); err != nil {
		utils.DeleteFile(staging)
		return err
	}
	return nil
}
