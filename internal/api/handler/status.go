package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/scribeworks/vidscribe/internal/domain"
	"github.com/scribeworks/vidscribe/internal/store"
)

var startTime = time.Now()

// Features reports which optional integrations are configured.
type Features struct {
	FactCheck       bool `json:"fact_check"`
	SheetsExport    bool `json:"sheets_export"`
	VideoGeneration bool `json:"video_generation"`
}

// StatusHandler handles the health and status endpoints.
type StatusHandler struct {
	store    *store.ResourceStore
	features Features
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(resources *store.ResourceStore, features Features) *StatusHandler {
	return &StatusHandler{
		store:    resources,
		features: features,
	}
}

// HealthResponse is the JSON response for the liveness probe.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health - liveness probe.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ResourceCounts is the number of live artifacts per kind.
type ResourceCounts struct {
	Videos int `json:"videos"`
	Audio  int `json:"audio"`
}

// StatusResponse is the JSON response of the status endpoint.
type StatusResponse struct {
	Status        string         `json:"status"`
	Timestamp     string         `json:"timestamp"`
	Uptime        int64          `json:"uptime_seconds"`
	UptimeHuman   string         `json:"uptime_human"`
	Resources     ResourceCounts `json:"resources"`
	Features      Features       `json:"features"`
	MemAllocMB    int64          `json:"mem_alloc_mb"`
	NumGoroutines int            `json:"num_goroutines"`
}

// Status handles GET /status - service statistics.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      int64(uptime.Seconds()),
		UptimeHuman: formatUptime(uptime),
		Resources: ResourceCounts{
			Videos: h.store.Count(domain.KindVideo),
			Audio:  h.store.Count(domain.KindAudio),
		},
		Features:      h.features,
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
	})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
