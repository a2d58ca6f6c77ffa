package domain

import "errors"

// Domain errors.
var (
	// ErrResourceNotFound is returned when a resource id is unknown or its
	// backing file has expired.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when a required request field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDownloadFailed is returned when the video download fails.
	ErrDownloadFailed = errors.New("video download failed")

	// ErrExtractionFailed is returned when audio extraction fails.
	ErrExtractionFailed = errors.New("audio extraction failed")

	// ErrFactCheckFailed is returned when the fact-check provider signals an error.
	ErrFactCheckFailed = errors.New("fact check failed")

	// ErrPromptExpansionFailed is returned when prompt expansion yields no text.
	ErrPromptExpansionFailed = errors.New("prompt expansion failed")

	// ErrModelOverloaded is returned when the generation model reports overload (503).
	ErrModelOverloaded = errors.New("model overloaded")

	// ErrQuotaExceeded is returned when the provider quota is exhausted (429).
	ErrQuotaExceeded = errors.New("api quota exceeded")

	// ErrGenerationFiltered is returned when all generated media was removed
	// by the provider's safety filters.
	ErrGenerationFiltered = errors.New("generation filtered by safety")

	// ErrGenerationEmpty is returned when generation finished without
	// artifacts and without a filter reason.
	ErrGenerationEmpty = errors.New("no media generated")

	// ErrGenerationTimeout is returned when a generation operation is still
	// running after the maximum wait. Resubmission may succeed.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// StageError wraps an error with the pipeline stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}
