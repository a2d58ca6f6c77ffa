package store

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Janitor periodically evicts resources whose backing file is older than
// the retention window, deleting both the file and the mapping. Eviction
// failures are logged and never propagate.
type Janitor struct {
	store    *ResourceStore
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor creates a janitor for the given store.
func NewJanitor(store *ResourceStore, maxAge, interval time.Duration, logger *slog.Logger) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background sweep loop.
func (j *Janitor) Start() {
	j.logger.Info("starting resource janitor",
		"max_age", j.maxAge, "sweep_interval", j.interval)

	j.wg.Add(1)
	go j.run()
}

// Stop terminates the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
	j.logger.Info("resource janitor stopped")
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs a single eviction pass. Exposed so tests and operators can
// trigger a pass without waiting for the ticker.
func (j *Janitor) Sweep() {
	now := time.Now()

	for _, res := range j.store.Entries() {
		info, err := os.Stat(res.Path)
		if err != nil {
			// File vanished out from under us; just drop the mapping.
			j.store.drop(res.ID)
			j.logger.Info("dropped entry for missing file",
				"id", res.ID, "kind", res.Kind, "path", res.Path)
			continue
		}

		if now.Sub(info.ModTime()) <= j.maxAge {
			continue
		}

		if err := os.Remove(res.Path); err != nil {
			j.logger.Error("failed to delete expired file",
				"id", res.ID, "path", res.Path, "error", err)
			continue
		}

		j.store.drop(res.ID)
		j.logger.Info("evicted expired resource",
			"id", res.ID, "kind", res.Kind, "path", res.Path)
	}
}
