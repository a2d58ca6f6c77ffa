package store

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/vidscribe/internal/domain"
)

// ResourceStore is an in-memory mapping from generated identifiers to
// artifact files on disk. One store covers all resource kinds; entries
// are tagged with their kind. The filesystem owns the bytes, the store
// owns the mapping.
type ResourceStore struct {
	mu      sync.RWMutex
	entries map[domain.ResourceID]domain.Resource
	logger  *slog.Logger
}

// New creates an empty resource store.
func New(logger *slog.Logger) *ResourceStore {
	return &ResourceStore{
		entries: make(map[domain.ResourceID]domain.Resource),
		logger:  logger,
	}
}

// Put registers a file under a fresh identifier and returns the id.
func (s *ResourceStore) Put(kind domain.ResourceKind, path string) domain.ResourceID {
	id := domain.ResourceID(uuid.New().String())

	s.mu.Lock()
	s.entries[id] = domain.Resource{
		ID:        id,
		Kind:      kind,
		Path:      path,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	return id
}

// Get resolves an identifier of the given kind to its resource entry.
// If the backing file no longer exists the stale entry is removed and
// ErrResourceNotFound returned.
func (s *ResourceStore) Get(kind domain.ResourceKind, id domain.ResourceID) (domain.Resource, error) {
	s.mu.RLock()
	res, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || res.Kind != kind {
		return domain.Resource{}, domain.ErrResourceNotFound
	}

	if _, err := os.Stat(res.Path); err != nil {
		s.logger.Warn("backing file missing, dropping entry",
			"id", id, "kind", kind, "path", res.Path)
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return domain.Resource{}, domain.ErrResourceNotFound
	}

	return res, nil
}

// Remove deletes the backing file (best effort) and the mapping entry.
func (s *ResourceStore) Remove(id domain.ResourceID) {
	s.mu.Lock()
	res, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		return
	}

	if err := os.Remove(res.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to delete resource file",
			"id", id, "path", res.Path, "error", err)
	}
}

// Count returns the number of live entries of a kind.
func (s *ResourceStore) Count(kind domain.ResourceKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, res := range s.entries {
		if res.Kind == kind {
			n++
		}
	}
	return n
}

// Entries returns a snapshot of all live entries. The janitor iterates
// over the snapshot so eviction never holds the lock across file I/O.
func (s *ResourceStore) Entries() []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Resource, 0, len(s.entries))
	for _, res := range s.entries {
		out = append(out, res)
	}
	return out
}

// drop removes a mapping entry without touching the filesystem.
func (s *ResourceStore) drop(id domain.ResourceID) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}
