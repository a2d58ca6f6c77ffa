package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/store"
)

// MediaHandler streams stored artifacts back to the caller.
type MediaHandler struct {
	store  *store.ResourceStore
	logger *slog.Logger
}

// NewMediaHandler creates a new media download handler.
func NewMediaHandler(resources *store.ResourceStore, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		store:  resources,
		logger: logger,
	}
}

// DownloadAudio handles GET /download-audio/{audioID}
func (h *MediaHandler) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.KindAudio, chi.URLParam(r, "audioID"), "audio", ".mp3", "audio/mpeg")
}

// DownloadVideo handles GET /download-video/{videoID}
func (h *MediaHandler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.KindVideo, chi.URLParam(r, "videoID"), "video", ".mp4", "video/mp4")
}

func (h *MediaHandler) serve(w http.ResponseWriter, r *http.Request, kind domain.ResourceKind, id, prefix, ext, contentType string) {
	if id == "" {
		writeError(w, fmt.Errorf("%w: missing resource ID", domain.ErrInvalidInput), nil)
		return
	}

	res, err := h.store.Get(kind, domain.ResourceID(id))
	if err != nil {
		writeError(w, err, nil)
		return
	}

	filename := fmt.Sprintf("%s_%s%s", prefix, time.Now().Format("20060102_150405"), ext)

	h.logger.Info("serving artifact", "kind", kind, "id", id, "path", res.Path)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, res.Path)
}
