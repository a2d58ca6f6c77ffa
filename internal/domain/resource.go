package domain

import "time"

// ResourceID is an opaque identifier for a stored artifact.
type ResourceID string

// String returns the string representation of the ResourceID.
func (id ResourceID) String() string {
	return string(id)
}

// ResourceKind distinguishes the artifact namespaces of the store.
type ResourceKind string

const (
	KindVideo ResourceKind = "video"
	KindAudio ResourceKind = "audio"
)

// Resource maps an identifier to a file on disk. Entries are immutable
// once created; reprocessing produces a new entry instead of an update.
type Resource struct {
	ID        ResourceID
	Kind      ResourceKind
	Path      string
	CreatedAt time.Time
}

// Stage names the pipeline stage an operation belongs to.
type Stage string

const (
	StageDownload    Stage = "download"
	StageExtract     Stage = "extract"
	StageTranscribe  Stage = "transcribe"
	StageVerifyFacts Stage = "verify_facts"
	StageGenerate    Stage = "generate"
)
