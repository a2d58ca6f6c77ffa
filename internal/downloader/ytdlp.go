package downloader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
)

// candidatePaths are checked in order when no binary path is configured.
var candidatePaths = []string{
	"/usr/local/bin/yt-dlp",
	"/usr/bin/yt-dlp",
	"yt-dlp",
}

// altExtensions are probed when yt-dlp remuxes the output container.
var altExtensions = []string{".mp4", ".webm", ".mkv"}

// YtDlpDownloader downloads media by shelling out to the yt-dlp binary.
type YtDlpDownloader struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewYtDlpDownloader creates a downloader, resolving the yt-dlp binary
// from config or the usual install locations.
func NewYtDlpDownloader(cfg config.DownloadConfig, logger *slog.Logger) *YtDlpDownloader {
	binary := cfg.BinaryPath
	if binary == "" {
		binary = findBinary()
	}

	return &YtDlpDownloader{
		binary:  binary,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func findBinary() string {
	for _, p := range candidatePaths {
		if strings.ContainsRune(p, os.PathSeparator) {
			if _, err := os.Stat(p); err == nil {
				return p
			}
			continue
		}
		if resolved, err := exec.LookPath(p); err == nil {
			return resolved
		}
	}
	return "yt-dlp"
}

// Download fetches the media at url into dir and returns the saved path.
func (d *YtDlpDownloader) Download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	name := uuid.New().String()[:8]
	outputPath := filepath.Join(dir, name+".mp4")

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binary,
		"-f", "best[ext=mp4]/best",
		"-o", outputPath,
		"--no-playlist",
		"--no-warnings",
		url,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.logger.Info("downloading media", "url", url, "output", outputPath)

	if err := cmd.Run(); err != nil {
		summary := summarizeStderr(stderr.String())
		d.logger.Error("yt-dlp failed", "url", url, "error", err, "stderr", summary)
		return "", fmt.Errorf("%w: %s", domain.ErrDownloadFailed, summary)
	}

	path, err := FindOutput(outputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrDownloadFailed, err)
	}

	d.logger.Info("media downloaded", "path", path)
	return path, nil
}

// FindOutput locates the file yt-dlp actually produced. yt-dlp may swap
// the container extension, so the sibling extensions are probed too.
func FindOutput(expected string) (string, error) {
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	base := strings.TrimSuffix(expected, filepath.Ext(expected))
	for _, ext := range altExtensions {
		alt := base + ext
		if _, err := os.Stat(alt); err == nil {
			return alt, nil
		}
	}

	return "", fmt.Errorf("downloaded file not found at %s", expected)
}

// summarizeStderr keeps the tail of yt-dlp's stderr, which carries the
// actionable error line.
func summarizeStderr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no output from yt-dlp"
	}

	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "; ")
}
