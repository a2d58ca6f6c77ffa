package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Extractor pulls audio tracks out of video files using ffmpeg.
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewExtractor creates an extractor, resolving ffmpeg and ffprobe from PATH.
func NewExtractor() (*Extractor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Extractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// MediaInfo contains probed metadata about a media file.
type MediaInfo struct {
	Duration float64
	HasAudio bool
}

// Probe inspects a media file with ffprobe.
func (e *Extractor) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	if parsed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
	}
	for _, s := range parsed.Streams {
		if s.CodecType == "audio" {
			info.HasAudio = true
		}
	}

	return info, nil
}

// ExtractConfig configures audio extraction.
type ExtractConfig struct {
	OutputPath string // Path for the output audio file
	SampleRate int    // Sample rate in Hz (default: 16000, good for speech)
	Channels   int    // Number of channels, 1=mono (default: 1)
	Bitrate    string // Audio bitrate (default: "64k")
}

// ExtractAudio extracts the audio track of videoPath into an mp3 file.
// Returns the output path.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath string, cfg ExtractConfig) (string, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Bitrate == "" {
		cfg.Bitrate = "64k"
	}

	info, err := e.Probe(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("probe video: %w", err)
	}
	if !info.HasAudio {
		return "", fmt.Errorf("video has no audio track")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-b:a", cfg.Bitrate,
		"-y",
		cfg.OutputPath,
	)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}

	if _, err := os.Stat(cfg.OutputPath); err != nil {
		return "", fmt.Errorf("extracted audio not found: %w", err)
	}

	return cfg.OutputPath, nil
}
