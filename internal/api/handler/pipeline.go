package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/logbuf"
	"github.com/scribeworks/vidscribe/internal/service"
)

// PipelineHandler handles the media processing endpoints. Each request
// gets its own log trace whose lines are returned in the response.
type PipelineHandler struct {
	pipeline *service.Pipeline
	logger   *slog.Logger
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(pipeline *service.Pipeline, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

func (h *PipelineHandler) trace() (*logbuf.Trace, *slog.Logger) {
	t := logbuf.NewTrace(h.logger.Handler())
	return t, t.Logger()
}

// ProcessRequest is the JSON request body for the full pipeline.
type ProcessRequest struct {
	URL          string `json:"video_url"`
	APIKey       string `json:"api_key"`
	Model        string `json:"model,omitempty"`
	Language     string `json:"language,omitempty"`
	FactCheck    bool   `json:"fact_check,omitempty"`
	FactCheckKey string `json:"fact_check_api_key,omitempty"`
	SaveToSheet  bool   `json:"save_to_sheet,omitempty"`
}

// FactCheckBody is the fact-check portion of a pipeline response.
type FactCheckBody struct {
	Analysis  string   `json:"analysis"`
	Citations []string `json:"citations,omitempty"`
}

// ProcessResponse is the JSON response of the full pipeline.
type ProcessResponse struct {
	Status           string         `json:"status"`
	Message          string         `json:"message"`
	VideoID          string         `json:"video_id"`
	AudioID          string         `json:"audio_id"`
	Transcript       string         `json:"transcript"`
	Summary          string         `json:"summary"`
	Degraded         bool           `json:"transcription_degraded,omitempty"`
	FactCheck        *FactCheckBody `json:"fact_check,omitempty"`
	FactCheckError   string         `json:"fact_check_error,omitempty"`
	SheetSaved       bool           `json:"sheet_saved,omitempty"`
	SheetError       string         `json:"sheet_error,omitempty"`
	DownloadAudioURL string         `json:"download_audio_url"`
	DownloadVideoURL string         `json:"download_video_url"`
	Logs             []string       `json:"logs"`
}

// Process handles POST /process
func (h *PipelineHandler) Process(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	result, err := h.pipeline.Process(r.Context(), log, service.ProcessRequest{
		URL:          req.URL,
		APIKey:       req.APIKey,
		Model:        req.Model,
		Language:     req.Language,
		FactCheck:    req.FactCheck,
		FactCheckKey: req.FactCheckKey,
		SaveToSheet:  req.SaveToSheet,
	})
	if err != nil {
		log.Error("pipeline failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	resp := ProcessResponse{
		Status:           "success",
		Message:          "video processed",
		VideoID:          string(result.VideoID),
		AudioID:          string(result.AudioID),
		Transcript:       result.Transcript,
		Summary:          result.Summary,
		Degraded:         result.Degraded,
		FactCheckError:   result.FactCheckError,
		SheetSaved:       result.SheetSaved,
		SheetError:       result.SheetError,
		DownloadAudioURL: "/download-audio/" + string(result.AudioID),
		DownloadVideoURL: "/download-video/" + string(result.VideoID),
		Logs:             trace.Lines(),
	}
	if result.Degraded {
		resp.Message = "video processed, transcription degraded"
	}
	if result.FactCheck != nil {
		resp.FactCheck = &FactCheckBody{
			Analysis:  result.FactCheck.Analysis,
			Citations: result.FactCheck.Citations,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DownloadRequest is the JSON request body for download-only endpoints.
type DownloadRequest struct {
	URL string `json:"video_url"`
}

// DownloadResponse is the JSON response of the download-only endpoint.
type DownloadResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	VideoID     string   `json:"video_id"`
	DownloadURL string   `json:"download_url"`
	Logs        []string `json:"logs"`
}

// DownloadOnly handles POST /download-video-only
func (h *PipelineHandler) DownloadOnly(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	videoID, err := h.pipeline.Download(r.Context(), log, req.URL)
	if err != nil {
		log.Error("download failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Status:      "success",
		Message:     "video downloaded",
		VideoID:     string(videoID),
		DownloadURL: "/download-video/" + string(videoID),
		Logs:        trace.Lines(),
	})
}

// ExtractResponse is the JSON response of the extraction endpoints.
type ExtractResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	VideoID     string   `json:"video_id,omitempty"`
	AudioID     string   `json:"audio_id"`
	DownloadURL string   `json:"download_url"`
	Logs        []string `json:"logs"`
}

// ExtractOnly handles POST /extract-audio-only
func (h *PipelineHandler) ExtractOnly(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	videoID, err := h.pipeline.Download(r.Context(), log, req.URL)
	if err != nil {
		log.Error("download failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	audioID, err := h.pipeline.ExtractAudio(r.Context(), log, service.AudioSource{VideoID: videoID})
	if err != nil {
		log.Error("extraction failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Status:      "success",
		Message:     "audio extracted",
		VideoID:     string(videoID),
		AudioID:     string(audioID),
		DownloadURL: "/download-audio/" + string(audioID),
		Logs:        trace.Lines(),
	})
}

// ExtractFromVideo handles POST /extract-audio-from-video/{videoID}
func (h *PipelineHandler) ExtractFromVideo(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeError(w, fmt.Errorf("%w: missing video ID", domain.ErrInvalidInput), trace.Lines())
		return
	}

	audioID, err := h.pipeline.ExtractAudio(r.Context(), log, service.AudioSource{
		VideoID: domain.ResourceID(videoID),
	})
	if err != nil {
		log.Error("extraction failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Status:      "success",
		Message:     "audio extracted",
		VideoID:     videoID,
		AudioID:     string(audioID),
		DownloadURL: "/download-audio/" + string(audioID),
		Logs:        trace.Lines(),
	})
}

// TranscribeRequest is the JSON request body for transcription.
type TranscribeRequest struct {
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// TranscribeResponse is the JSON response of the transcription endpoint.
type TranscribeResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	AudioID    string   `json:"audio_id"`
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Degraded   bool     `json:"transcription_degraded,omitempty"`
	Logs       []string `json:"logs"`
}

// TranscribeFromAudio handles POST /transcribe-from-audio/{audioID}
func (h *PipelineHandler) TranscribeFromAudio(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	audioID := chi.URLParam(r, "audioID")
	if audioID == "" {
		writeError(w, fmt.Errorf("%w: missing audio ID", domain.ErrInvalidInput), trace.Lines())
		return
	}

	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	outcome, err := h.pipeline.Transcribe(r.Context(), log,
		service.TranscribeSource{AudioID: domain.ResourceID(audioID)},
		service.TranscribeOptions{
			APIKey:   req.APIKey,
			Model:    req.Model,
			Language: req.Language,
		})
	if err != nil {
		log.Error("transcription failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	resp := TranscribeResponse{
		Status:     "success",
		Message:    "audio transcribed",
		AudioID:    audioID,
		Transcript: outcome.Transcript,
		Summary:    outcome.Summary,
		Degraded:   outcome.Degraded,
		Logs:       trace.Lines(),
	}
	if outcome.Degraded {
		resp.Message = "transcription degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyFactsRequest is the JSON request body for fact checking.
type VerifyFactsRequest struct {
	Transcript string `json:"transcript"`
	APIKey     string `json:"api_key"`
	Language   string `json:"language,omitempty"`
}

// VerifyFactsResponse is the JSON response of the fact-check endpoint.
type VerifyFactsResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Analysis  string   `json:"analysis"`
	Citations []string `json:"citations,omitempty"`
	Logs      []string `json:"logs"`
}

// VerifyFacts handles POST /verify-facts
func (h *PipelineHandler) VerifyFacts(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	var req VerifyFactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	result, err := h.pipeline.VerifyFacts(r.Context(), log, req.Transcript, req.APIKey, req.Language)
	if err != nil {
		log.Error("fact check failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, VerifyFactsResponse{
		Status:    "success",
		Message:   "facts verified",
		Analysis:  result.Analysis,
		Citations: result.Citations,
		Logs:      trace.Lines(),
	})
}

// InfographicRequest is the JSON request body for image generation.
type InfographicRequest struct {
	Description string `json:"description"`
	APIKey      string `json:"api_key"`
}

// InfographicResponse is the JSON response of the image generation endpoint.
type InfographicResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	PromptUsed  string   `json:"prompt_used"`
	Logs        []string `json:"logs"`
}

// GenerateInfographic handles POST /generate-infographic
func (h *PipelineHandler) GenerateInfographic(w http.ResponseWriter, r *http.Request) {
	trace, log := h.trace()

	var req InfographicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput), trace.Lines())
		return
	}

	result, err := h.pipeline.GenerateInfographic(r.Context(), log, req.Description, req.APIKey)
	if err != nil {
		log.Error("infographic generation failed", "error", err)
		writeError(w, err, trace.Lines())
		return
	}

	writeJSON(w, http.StatusOK, InfographicResponse{
		Status:      "success",
		Message:     "infographic generated",
		ImageBase64: base64.StdEncoding.EncodeToString(result.Image),
		MimeType:    result.MimeType,
		PromptUsed:  result.PromptUsed,
		Logs:        trace.Lines(),
	})
}
