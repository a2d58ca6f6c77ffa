package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/service"
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

// withURLParam attaches a chi URL parameter to the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// fakeDownloader writes a small video file into dir.
type fakeDownloader struct {
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, url, dir string) (string, error) {
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
	err error
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath string, cfg ffmpeg.ExtractConfig) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(cfg.OutputPath, []byte("audio-bytes"), 0o644); err != nil {
		return "", err
	}
	return cfg.OutputPath, nil
}

type fakeTranscriber struct {
	result *gemini.TranscribeResult
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req gemini.TranscribeRequest) (*gemini.TranscribeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFactChecker struct {
	result *perplexity.Result
	err    error
}

func (f *fakeFactChecker) VerifyFacts(ctx context.Context, transcript, apiKey, language string) (*perplexity.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeImageGen struct {
	prompt    string
	promptErr error
	image     *gemini.GeneratedImage
	imageErr  error
}

func (f *fakeImageGen) ExpandPrompt(ctx context.Context, description, apiKey string) (string, error) {
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return f.prompt, nil
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt, apiKey string) (*gemini.GeneratedImage, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.image, nil
}

type fakeSheets struct {
	available bool
	err       error
}

func (f *fakeSheets) Available() bool { return f.available }

func (f *fakeSheets) AppendResult(ctx context.Context, row sheets.Row) error {
	return f.err
}

// pipelineFixture bundles a pipeline handler and its fakes.
type pipelineFixture struct {
	handler     *PipelineHandler
	pipeline    *service.Pipeline
	store       *store.ResourceStore
	downloader  *fakeDownloader
	extractor   *fakeExtractor
	transcriber *fakeTranscriber
	factChecker *fakeFactChecker
	imageGen    *fakeImageGen
	storage     config.StorageConfig
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	base := t.TempDir()
	storage := config.StorageConfig{
		VideoPath: filepath.Join(base, "video"),
		AudioPath: filepath.Join(base, "audio"),
		TempPath:  filepath.Join(base, "temp"),
	}
	for _, dir := range []string{storage.VideoPath, storage.AudioPath, storage.TempPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	f := &pipelineFixture{
		store:       store.New(testLogger()),
		downloader:  &fakeDownloader{},
		extractor:   &fakeExtractor{},
		transcriber: &fakeTranscriber{result: &gemini.TranscribeResult{Transcript: "hello world", Summary: "greeting"}},
		factChecker: &fakeFactChecker{result: &perplexity.Result{Analysis: "confirmed"}},
		imageGen:    &fakeImageGen{prompt: "detailed prompt", image: &gemini.GeneratedImage{Data: []byte{1, 2, 3}, MimeType: "image/png"}},
		storage:     storage,
	}

	f.pipeline = service.NewPipeline(
		f.store,
		f.downloader,
		f.extractor,
		f.transcriber,
		f.factChecker,
		f.imageGen,
		&fakeSheets{},
		storage,
		config.GenerationConfig{
			PollInterval:    20 * time.Second,
			MaxWait:         300 * time.Second,
			MaxAttempts:     3,
			OverloadBackoff: 10 * time.Second,
		},
	)
	f.pipeline.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })

	f.handler = NewPipelineHandler(f.pipeline, testLogger())
	return f
}
