package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/poller"
	"github.com/scribeworks/vidscribe/pkg/gemini"
)

// VideoClient submits video generation jobs and fetches their artifacts.
type VideoClient interface {
	SubmitVideo(ctx context.Context, req gemini.VideoRequest) (*gemini.Operation, error)
	FetchVideo(ctx context.Context, uri, apiKey string) ([]byte, error)
}

// VideoGenerator runs the full video generation flow: submit with bounded
// overload retry, poll the long-running operation, fetch the artifact.
type VideoGenerator struct {
	client VideoClient
	poller *poller.Poller
	genCfg config.GenerationConfig
	sleep  poller.SleepFunc
}

// NewVideoGenerator creates the video generation service.
func NewVideoGenerator(client VideoClient, p *poller.Poller, genCfg config.GenerationConfig) *VideoGenerator {
	return &VideoGenerator{
		client: client,
		poller: p,
		genCfg: genCfg,
	}
}

// SetSleep replaces the backoff sleep used by submission retries. Used by tests.
func (g *VideoGenerator) SetSleep(sleep poller.SleepFunc) {
	g.sleep = sleep
}

// GenerateVideoRequest describes one video generation run.
type GenerateVideoRequest struct {
	Prompt      string
	ImageBytes  []byte
	ImageMime   string
	Model       string
	AspectRatio string
	APIKey      string
}

// GeneratedVideo is a fetched video artifact.
type GeneratedVideo struct {
	Data     []byte
	MimeType string
}

// Generate runs one video generation job end to end.
func (g *VideoGenerator) Generate(ctx context.Context, log *slog.Logger, req GenerateVideoRequest) (*GeneratedVideo, error) {
	if req.Prompt == "" && len(req.ImageBytes) == 0 {
		return nil, fmt.Errorf("%w: prompt or seed image is required", domain.ErrInvalidInput)
	}
	if req.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}
	if req.AspectRatio != "" && req.AspectRatio != "16:9" && req.AspectRatio != "9:16" {
		return nil, fmt.Errorf("%w: aspect ratio must be 16:9 or 9:16", domain.ErrInvalidInput)
	}

	log.Info("submitting video generation",
		"prompt_chars", len(req.Prompt), "has_image", len(req.ImageBytes) > 0)

	op, err := poller.SubmitWithRetry(ctx, g.genCfg.MaxAttempts, g.genCfg.OverloadBackoff, g.sleep,
		func() (*gemini.Operation, error) {
			return g.client.SubmitVideo(ctx, gemini.VideoRequest{
				Prompt:      req.Prompt,
				ImageBytes:  req.ImageBytes,
				ImageMime:   req.ImageMime,
				Model:       req.Model,
				AspectRatio: req.AspectRatio,
				APIKey:      req.APIKey,
			})
		})
	if err != nil {
		return nil, domain.NewStageError(domain.StageGenerate, err)
	}

	log.Info("video operation started", "operation", op.Name)

	outcome := g.poller.Wait(ctx, op, req.APIKey)
	switch outcome.State {
	case poller.StateSuccess:
	case poller.StateFiltered:
		return nil, domain.NewStageError(domain.StageGenerate,
			fmt.Errorf("%w: %s", domain.ErrGenerationFiltered, strings.Join(outcome.FilterReasons, "; ")))
	default:
		return nil, domain.NewStageError(domain.StageGenerate, outcome.Err)
	}

	uri := outcome.Operation.Response.VideoURIs()[0]
	log.Info("fetching generated video", "uri", uri)

	data, err := g.client.FetchVideo(ctx, uri, req.APIKey)
	if err != nil {
		return nil, domain.NewStageError(domain.StageGenerate, err)
	}

	log.Info("video generated", "bytes", len(data))

	return &GeneratedVideo{Data: data, MimeType: "video/mp4"}, nil
}
