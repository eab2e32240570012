package video

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Info is what ffprobe reports about a local video file before upload. It is
// display-only context; the service computes its own numbers server-side.
type Info struct {
	Filename    string
	Duration    float64
	FPS         float64
	TotalFrames int
	FileSizeMB  float64
	Format      string
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	RFrameRate string `json:"r_frame_rate"`
	NBFrames   string `json:"nb_frames"`
}

func (p *ffprobeOutput) firstVideoStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001") to fps.
func parseFrameRate(raw string) float64 {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		fps, _ := strconv.ParseFloat(raw, 64)
		return fps
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Probe inspects a local video with ffprobe.
func Probe(ctx context.Context, path string) (*Info, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	videoStream := probe.firstVideoStream()
	if videoStream == nil {
		return nil, errors.New("no video stream found")
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	frames, _ := strconv.Atoi(videoStream.NBFrames)

	info := &Info{
		Filename:    filepath.Base(path),
		Duration:    duration,
		FPS:         parseFrameRate(videoStream.RFrameRate),
		TotalFrames: frames,
		Format:      probe.Format.Format,
	}

	if stat, err := os.Stat(path); err == nil {
		info.FileSizeMB = float64(stat.Size()) / (1 << 20)
	}

	return info, nil
}
