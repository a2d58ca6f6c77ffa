package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/downloader"
	"github.com/scribeworks/vidscribe/internal/poller"
	"github.com/scribeworks/vidscribe/internal/store"
	"github.com/scribeworks/vidscribe/pkg/ffmpeg"
	"github.com/scribeworks/vidscribe/pkg/gemini"
	"github.com/scribeworks/vidscribe/pkg/perplexity"
	"github.com/scribeworks/vidscribe/pkg/sheets"
)

// AudioExtractor pulls the audio track out of a local video file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath string, cfg ffmpeg.ExtractConfig) (string, error)
}

// Transcriber converts an audio file to text plus a summary.
type Transcriber interface {
	Transcribe(ctx context.Context, req gemini.TranscribeRequest) (*gemini.TranscribeResult, error)
}

// FactChecker verifies factual claims in a transcript.
type FactChecker interface {
	VerifyFacts(ctx context.Context, transcript, apiKey, language string) (*perplexity.Result, error)
}

// ImageGenerator expands a description into a prompt and renders it.
type ImageGenerator interface {
	ExpandPrompt(ctx context.Context, description, apiKey string) (string, error)
	GenerateImage(ctx context.Context, prompt, apiKey string) (*gemini.GeneratedImage, error)
}

// SheetAppender exports a pipeline result row to a spreadsheet.
type SheetAppender interface {
	Available() bool
	AppendResult(ctx context.Context, row sheets.Row) error
}

// Pipeline implements the media processing stages. Every stage is
// independently invocable; artifacts are chained between stages through
// resource store identifiers. Stage methods take the request-scoped
// logger explicitly so each request keeps its own log trace.
type Pipeline struct {
	store       *store.ResourceStore
	downloader  downloader.Downloader
	extractor   AudioExtractor
	transcriber Transcriber
	factChecker FactChecker
	imageGen    ImageGenerator
	sheets      SheetAppender
	storageCfg  config.StorageConfig
	genCfg      config.GenerationConfig
	sleep       poller.SleepFunc
}

// NewPipeline creates the pipeline service. factChecker and sheets may
// be nil; the dependent optional steps then report themselves unavailable.
func NewPipeline(
	resources *store.ResourceStore,
	dl downloader.Downloader,
	extractor AudioExtractor,
	transcriber Transcriber,
	factChecker FactChecker,
	imageGen ImageGenerator,
	sheetClient SheetAppender,
	storageCfg config.StorageConfig,
	genCfg config.GenerationConfig,
) *Pipeline {
	return &Pipeline{
		store:       resources,
		downloader:  dl,
		extractor:   extractor,
		transcriber: transcriber,
		factChecker: factChecker,
		imageGen:    imageGen,
		sheets:      sheetClient,
		storageCfg:  storageCfg,
		genCfg:      genCfg,
	}
}

// SetSleep replaces the backoff sleep used by generation retries. Used by tests.
func (p *Pipeline) SetSleep(sleep poller.SleepFunc) {
	p.sleep = sleep
}

// Store exposes the resource store for handlers that stream artifacts.
func (p *Pipeline) Store() *store.ResourceStore {
	return p.store
}

// FactCheckAvailable reports whether the fact-check adapter is wired.
func (p *Pipeline) FactCheckAvailable() bool {
	return p.factChecker != nil
}

// SheetsAvailable reports whether the spreadsheet export is configured.
func (p *Pipeline) SheetsAvailable() bool {
	return p.sheets != nil && p.sheets.Available()
}

// Download fetches the media at url and registers it as a video resource.
func (p *Pipeline) Download(ctx context.Context, log *slog.Logger, url string) (domain.ResourceID, error) {
	if url == "" {
		return "", fmt.Errorf("%w: video URL is required", domain.ErrInvalidInput)
	}

	log.Info("downloading video", "url", url)

	path, err := p.downloader.Download(ctx, url, p.storageCfg.VideoPath)
	if err != nil {
		return "", domain.NewStageError(domain.StageDownload, err)
	}

	id := p.store.Put(domain.KindVideo, path)
	log.Info("video stored", "video_id", id, "path", path)

	return id, nil
}

// AudioSource identifies the input of the extraction stage: either a raw
// file path or a stored video resource id.
type AudioSource struct {
	Path    string
	VideoID domain.ResourceID
}

// ExtractAudio extracts the audio track of a video into the permanent
// audio directory and registers it as an audio resource.
func (p *Pipeline) ExtractAudio(ctx context.Context, log *slog.Logger, src AudioSource) (domain.ResourceID, error) {
	videoPath := src.Path
	if src.VideoID != "" {
		res, err := p.store.Get(domain.KindVideo, src.VideoID)
		if err != nil {
			return "", err
		}
		videoPath = res.Path
	}
	if videoPath == "" {
		return "", fmt.Errorf("%w: video path or id is required", domain.ErrInvalidInput)
	}

	log.Info("extracting audio", "video_path", videoPath)

	tempPath := filepath.Join(p.storageCfg.TempPath, uuid.New().String()[:8]+".mp3")
	extracted, err := p.extractor.ExtractAudio(ctx, videoPath, ffmpeg.ExtractConfig{
		OutputPath: tempPath,
	})
	if err != nil {
		return "", domain.NewStageError(domain.StageExtract,
			fmt.Errorf("%w: %s", domain.ErrExtractionFailed, err))
	}

	permanent := filepath.Join(p.storageCfg.AudioPath, uuid.New().String()[:8]+".mp3")
	if err := copyFile(extracted, permanent); err != nil {
		return "", domain.NewStageError(domain.StageExtract,
			fmt.Errorf("%w: save audio: %s", domain.ErrExtractionFailed, err))
	}

	// Transient files never fail the stage.
	if extracted != permanent {
		if err := os.Remove(extracted); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove transient audio file", "path", extracted, "error", err)
		}
	}

	id := p.store.Put(domain.KindAudio, permanent)
	log.Info("audio stored", "audio_id", id, "path", permanent)

	return id, nil
}

// TranscribeSource identifies the input of the transcription stage.
type TranscribeSource struct {
	Path    string
	AudioID domain.ResourceID
}

// TranscribeOptions carries the caller's provider settings.
type TranscribeOptions struct {
	APIKey   string
	Model    string
	Language string
}

// TranscribeOutcome is always populated: when the provider fails, the
// transcript and summary carry explanatory placeholders and Degraded is
// set, so earlier pipeline work stays salvageable.
type TranscribeOutcome struct {
	Transcript string
	Summary    string
	Degraded   bool
	AudioID    domain.ResourceID
}

// Transcribe runs the transcription provider over an audio file. Provider
// failures are downgraded to a placeholder result, not returned as errors.
func (p *Pipeline) Transcribe(ctx context.Context, log *slog.Logger, src TranscribeSource, opts TranscribeOptions) (*TranscribeOutcome, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}

	audioPath := src.Path
	if src.AudioID != "" {
		res, err := p.store.Get(domain.KindAudio, src.AudioID)
		if err != nil {
			return nil, err
		}
		audioPath = res.Path
	}
	if audioPath == "" {
		return nil, fmt.Errorf("%w: audio path or id is required", domain.ErrInvalidInput)
	}

	log.Info("transcribing audio", "audio_path", audioPath, "model", opts.Model, "language", opts.Language)

	result, err := p.transcriber.Transcribe(ctx, gemini.TranscribeRequest{
		AudioPath: audioPath,
		APIKey:    opts.APIKey,
		Model:     opts.Model,
		Language:  opts.Language,
	})
	if err != nil {
		log.Error("transcription failed, returning degraded result", "error", err)
		return &TranscribeOutcome{
			Transcript: fmt.Sprintf("Transcription failed: %s", err),
			Summary:    "No summary available because transcription failed",
			Degraded:   true,
			AudioID:    src.AudioID,
		}, nil
	}

	log.Info("transcription complete", "transcript_chars", len(result.Transcript))

	return &TranscribeOutcome{
		Transcript: result.Transcript,
		Summary:    result.Summary,
		AudioID:    src.AudioID,
	}, nil
}

// VerifyFacts delegates the transcript to the fact-check provider.
func (p *Pipeline) VerifyFacts(ctx context.Context, log *slog.Logger, transcript, apiKey, language string) (*perplexity.Result, error) {
	if transcript == "" {
		return nil, fmt.Errorf("%w: transcript is required", domain.ErrInvalidInput)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}
	if p.factChecker == nil {
		return nil, domain.NewStageError(domain.StageVerifyFacts,
			fmt.Errorf("%w: fact-check provider not configured", domain.ErrFactCheckFailed))
	}

	log.Info("verifying facts", "transcript_chars", len(transcript))

	result, err := p.factChecker.VerifyFacts(ctx, transcript, apiKey, language)
	if err != nil {
		return nil, domain.NewStageError(domain.StageVerifyFacts, err)
	}

	log.Info("fact check complete", "citations", len(result.Citations))
	return result, nil
}

// InfographicResult is the output of the image generation stage.
type InfographicResult struct {
	Image      []byte
	MimeType   string
	PromptUsed string
}

// GenerateInfographic expands the description into a detailed prompt and
// renders it, retrying on model overload with a fixed backoff. Quota
// exhaustion aborts immediately.
func (p *Pipeline) GenerateInfographic(ctx context.Context, log *slog.Logger, description, apiKey string) (*InfographicResult, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}

	log.Info("expanding image prompt", "description_chars", len(description))

	prompt, err := p.imageGen.ExpandPrompt(ctx, description, apiKey)
	if err != nil {
		return nil, domain.NewStageError(domain.StageGenerate, err)
	}

	log.Info("prompt expanded", "prompt_chars", len(prompt))

	image, err := poller.SubmitWithRetry(ctx, p.genCfg.MaxAttempts, p.genCfg.OverloadBackoff, p.sleep,
		func() (*gemini.GeneratedImage, error) {
			log.Info("generating image")
			return p.imageGen.GenerateImage(ctx, prompt, apiKey)
		})
	if err != nil {
		return nil, domain.NewStageError(domain.StageGenerate, err)
	}

	log.Info("image generated", "bytes", len(image.Data), "mime_type", image.MimeType)

	return &InfographicResult{
		Image:      image.Data,
		MimeType:   image.MimeType,
		PromptUsed: prompt,
	}, nil
}

// ProcessRequest describes one full pipeline run.
type ProcessRequest struct {
	URL          string
	APIKey       string
	Model        string
	Language     string
	FactCheck    bool
	FactCheckKey string // defaults to APIKey when empty
	SaveToSheet  bool
}

// ProcessResult is the full pipeline outcome. FactCheckError and
// SheetError are sub-statuses: optional step failures never fail the run.
type ProcessResult struct {
	VideoID        domain.ResourceID
	AudioID        domain.ResourceID
	Transcript     string
	Summary        string
	Degraded       bool
	FactCheck      *perplexity.Result
	FactCheckError string
	SheetSaved     bool
	SheetError     string
}

// Process runs Download → ExtractAudio → Transcribe, then the optional
// fact-check and spreadsheet steps when requested and available.
func (p *Pipeline) Process(ctx context.Context, log *slog.Logger, req ProcessRequest) (*ProcessResult, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("%w: video URL is required", domain.ErrInvalidInput)
	}
	if req.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}

	videoID, err := p.Download(ctx, log, req.URL)
	if err != nil {
		return nil, err
	}

	audioID, err := p.ExtractAudio(ctx, log, AudioSource{VideoID: videoID})
	if err != nil {
		return nil, err
	}

	outcome, err := p.Transcribe(ctx, log, TranscribeSource{AudioID: audioID}, TranscribeOptions{
		APIKey:   req.APIKey,
		Model:    req.Model,
		Language: req.Language,
	})
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{
		VideoID:    videoID,
		AudioID:    audioID,
		Transcript: outcome.Transcript,
		Summary:    outcome.Summary,
		Degraded:   outcome.Degraded,
	}

	if req.FactCheck && !outcome.Degraded {
		key := req.FactCheckKey
		if key == "" {
			key = req.APIKey
		}
		check, err := p.VerifyFacts(ctx, log, outcome.Transcript, key, req.Language)
		if err != nil {
			log.Error("optional fact check failed", "error", err)
			result.FactCheckError = err.Error()
		} else {
			result.FactCheck = check
		}
	}

	if req.SaveToSheet {
		if !p.SheetsAvailable() {
			result.SheetError = "sheets export is not configured"
		} else if err := p.sheets.AppendResult(ctx, sheets.Row{
			VideoURL:   req.URL,
			Transcript: outcome.Transcript,
			Summary:    outcome.Summary,
			Language:   req.Language,
		}); err != nil {
			log.Error("optional sheet export failed", "error", err)
			result.SheetError = err.Error()
		} else {
			result.SheetSaved = true
			log.Info("result appended to sheet")
		}
	}

	return result, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
