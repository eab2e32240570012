package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepdefend/deepdefend-cli/pkg/utils"
)

// RemoteMetadata is what yt-dlp reports about a remote video before download.
type RemoteMetadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// IsRemoteURL reports whether the analyze target is an http(s) URL rather
// than a local path.
func IsRemoteURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// FetchRemote downloads a remote video with yt-dlp into outputDir and returns
// the local path for submission.
func FetchRemote(ctx context.Context, videoURL string, outputDir string) (videoPath string, metadata *RemoteMetadata, err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	metaCmd := exec.CommandContext(
		ctx,
		"yt-dlp",
		"-J",
		"--no-warnings",
		"--no-playlist",
		videoURL,
	)

	var stdout, stderr bytes.Buffer
	metaCmd.Stdout = &stdout
	metaCmd.Stderr = &stderr

	if err := metaCmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp metadata extraction failed: %v\nstderr: %s", err, stderr.String())
	}

	var meta RemoteMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return "", nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
	}
	if strings.TrimSpace(meta.ID) == "" {
		return "", nil, fmt.Errorf("missing video ID in yt-dlp output")
	}

	// Prefer mp4 so the downloaded file always lands inside the upload
	// surface's accepted formats.
	outputTemplate := filepath.Join(outputDir, fmt.Sprintf("%s.%%(ext)s", meta.ID))

	downloadCmd := exec.CommandContext(
		ctx,
		"yt-dlp",
		"-f", "bv*+ba/b",
		"--merge-output-format", "mp4",
		"--no-warnings",
		"--no-playlist",
		"-o", outputTemplate,
		videoURL,
	)

	var dlStderr bytes.Buffer
	downloadCmd.Stderr = &dlStderr

	if err := downloadCmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp download failed: %v\nstderr: %s", err, dlStderr.String())
	}

	videoExtensions := []string{".mp4", ".webm", ".mkv", ".mov", ".avi"}
	var downloadedPath string
	for _, ext := range videoExtensions {
		candidate := filepath.Join(outputDir, meta.ID+ext)
		if _, err := os.Stat(candidate); err == nil {
			downloadedPath = candidate
			break
		}
	}
	if downloadedPath == "" {
		return "", nil, fmt.Errorf("downloaded video not found for %s (checked extensions: %v)", meta.ID, videoExtensions)
	}

	return downloadedPath, &meta, nil
}
