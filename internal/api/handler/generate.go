package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/logbuf"
	"github.com/scribeworks/vidscribe/internal/service"
)

// GenerateHandler handles video generation requests.
type GenerateHandler struct {
	videoGen *service.VideoGenerator
	logger   *slog.Logger
}

// NewGenerateHandler creates a new video generation handler.
func NewGenerateHandler(videoGen *service.VideoGenerator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		videoGen: videoGen,
		logger:   logger,
	}
}

// GenerateVideoRequest is the JSON request body for video generation.
type GenerateVideoRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMime   string `json:"image_mime,omitempty"`
	Model       string `json:"model,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	APIKey      string `json:"api_key"`
}

// GenerateVideoResponse is the JSON response of the video generation endpoint.
type GenerateVideoResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	VideoBase64 string   `json:"video_base64"`
	MimeType    string   `json:"mime_type"`
	Logs        []string `json:"logs"`
}

// GenerateVideo handles POST /generate-video
func (h *GenerateHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	trace := logbuf.NewTrace(h.logger.Handler())
	log := trace.Logger()

	var req GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	var imageBytes []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: image_base64 is not valid base64", domain.ErrInvalidInput), trace.Lines())
			return
		}
		imageBytes = decoded
	}

	result, err := h.videoGen.Generate(r.Context(), log, service.GenerateVideoRequest{
		Prompt:      req.Prompt,
		ImageBytes:  imageBytes,
		ImageMime:   req.ImageMime,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		APIKey:      req.APIKey,
	})
	if err != nil {
		log.Error("video generation failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, GenerateVideoResponse{
		Status:      "success",
		Message:     "video generated",
		VideoBase64: base64.StdEncoding.EncodeToString(result.Data),
		MimeType:    result.MimeType,
		Logs:        trace.Lines(),
	})
}
