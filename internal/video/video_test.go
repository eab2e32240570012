package video

import (
	"math"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
		{"x/1", 0},
	}

	for _, tt := range tests {
		got := parseFrameRate(tt.raw)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"https://example.com/watch?v=abc", true},
		{"http://example.com/clip.mp4", true},
		{"./clip.mp4", false},
		{"/home/user/clip.mp4", false},
		{"clip.mp4", false},
		{"ftp://example.com/clip.mp4", false},
	}

	for _, tt := range tests {
		if got := IsRemoteURL(tt.target); got != tt.want {
			t.Errorf("IsRemoteURL(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
