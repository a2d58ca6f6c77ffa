package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scribeworks/vidscribe/internal/api/handler"
	mw "github.com/scribeworks/vidscribe/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured. When
// apiKey is empty the API is open; otherwise every endpoint except the
// liveness probe requires it.
func NewRouter(
	pipelineHandler *handler.PipelineHandler,
	generateHandler *handler.GenerateHandler,
	mediaHandler *handler.MediaHandler,
	statusHandler *handler.StatusHandler,
	logger *slog.Logger,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //status -> /status)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(10 * time.Minute)) // generation can poll for minutes

	r.Use(mw.CORS)

	// Liveness probe (no auth)
	r.Get("/health", statusHandler.Health)

	r.Group(func(r chi.Router) {
		if apiKey != "" {
			r.Use(mw.APIKeyAuth(apiKey))
		}

		r.Get("/status", statusHandler.Status)

		// Pipeline operations
		r.Post("/process", pipelineHandler.Process)
		r.Post("/download-video-only", pipelineHandler.DownloadOnly)
		r.Post("/extract-audio-only", pipelineHandler.ExtractOnly)
		r.Post("/extract-audio-from-video/{videoID}", pipelineHandler.ExtractFromVideo)
		r.Post("/transcribe-from-audio/{audioID}", pipelineHandler.TranscribeFromAudio)
		r.Post("/verify-facts", pipelineHandler.VerifyFacts)

		// Generation operations
		r.Post("/generate-infographic", pipelineHandler.GenerateInfographic)
		r.Post("/generate-video", generateHandler.GenerateVideo)

		// Artifact downloads
		r.Get("/download-audio/{audioID}", mediaHandler.DownloadAudio)
		r.Get("/download-video/{videoID}", mediaHandler.DownloadVideo)
	})

	return r
}
