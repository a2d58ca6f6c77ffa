package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/store"
	"github.com/scribeworks/vidscribe/pkg/ffmpeg"
	"github.com/scribeworks/vidscribe/pkg/gemini"
	"github.com/scribeworks/vidscribe/pkg/perplexity"
	"github.com/scribeworks/vidscribe/pkg/sheets"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStorage(t *testing.T) config.StorageConfig {
	t.Helper()
	base := t.TempDir()
	cfg := config.StorageConfig{
		VideoPath: filepath.Join(base, "video"),
		AudioPath: filepath.Join(base, "audio"),
		TempPath:  filepath.Join(base, "temp"),
	}
	for _, dir := range []string{cfg.VideoPath, cfg.AudioPath, cfg.TempPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return cfg
}

func testGenCfg() config.GenerationConfig {
	return config.GenerationConfig{
		PollInterval:    20 * time.Second,
		MaxWait:         300 * time.Second,
		MaxAttempts:     3,
		OverloadBackoff: 10 * time.Second,
	}
}

// sleepRecorder records requested sleep durations without sleeping.
type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

// fakeDownloader writes a small video file into dir.
type fakeDownloader struct {
	err   error
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, url, dir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeExtractor writes the requested output file.
type fakeExtractor struct {
	err   error
	calls int
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath string, cfg ffmpeg.ExtractConfig) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(cfg.OutputPath, []byte("audio-bytes"), 0o644); err != nil {
		return "", err
	}
	return cfg.OutputPath, nil
}

type fakeTranscriber struct {
	result  *gemini.TranscribeResult
	err     error
	lastReq gemini.TranscribeRequest
	calls   int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req gemini.TranscribeRequest) (*gemini.TranscribeResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFactChecker struct {
	result *perplexity.Result
	err    error
	calls  int
}

func (f *fakeFactChecker) VerifyFacts(ctx context.Context, transcript, apiKey, language string) (*perplexity.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeImageGen struct {
	prompt     string
	promptErr  error
	image      *gemini.GeneratedImage
	imageErrs  []error // consumed per call; nil entry means success
	imageCalls int
}

func (f *fakeImageGen) ExpandPrompt(ctx context.Context, description, apiKey string) (string, error) {
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return f.prompt, nil
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt, apiKey string) (*gemini.GeneratedImage, error) {
	i := f.imageCalls
	f.imageCalls++
	if i < len(f.imageErrs) && f.imageErrs[i] != nil {
		return nil, f.imageErrs[i]
	}
	return f.image, nil
}

type fakeSheets struct {
	available bool
	err       error
	rows      []sheets.Row
}

func (f *fakeSheets) Available() bool { return f.available }

func (f *fakeSheets) AppendResult(ctx context.Context, row sheets.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

// testFixture bundles a pipeline and its fakes.
type testFixture struct {
	pipeline    *Pipeline
	store       *store.ResourceStore
	downloader  *fakeDownloader
	extractor   *fakeExtractor
	transcriber *fakeTranscriber
	factChecker *fakeFactChecker
	imageGen    *fakeImageGen
	sheets      *fakeSheets
	storage     config.StorageConfig
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		store:       store.New(testLogger()),
		downloader:  &fakeDownloader{},
		extractor:   &fakeExtractor{},
		transcriber: &fakeTranscriber{result: &gemini.TranscribeResult{Transcript: "hello world", Summary: "greeting"}},
		factChecker: &fakeFactChecker{result: &perplexity.Result{Analysis: "all claims confirmed", Citations: []string{"https://example.org"}}},
		imageGen:    &fakeImageGen{prompt: "detailed prompt", image: &gemini.GeneratedImage{Data: []byte{1, 2, 3}, MimeType: "image/png"}},
		sheets:      &fakeSheets{available: true},
		storage:     testStorage(t),
	}

	f.pipeline = NewPipeline(
		f.store,
		f.downloader,
		f.extractor,
		f.transcriber,
		f.factChecker,
		f.imageGen,
		f.sheets,
		f.storage,
		testGenCfg(),
	)
	f.pipeline.SetSleep((&sleepRecorder{}).sleep)

	return f
}
