package driven

import "errors"

// Sentinel errors shared across adapter implementations. Callers match them
// with errors.Is to decide propagation scope: ErrAuthentication aborts the
// whole run, ErrRepoNotFound fails one repository, ErrValidation skips one
// record, and ErrWatermarkRegression is logged and ignored.
var (
	// ErrAuthentication indicates the GitHub credential was rejected.
	ErrAuthentication = errors.New("github credential rejected")

	// ErrRepoNotFound indicates the repository is missing or inaccessible.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrValidation indicates a fetched payload is missing a required field
	// or carries a malformed value.
	ErrValidation = errors.New("record failed validation")

	// ErrWatermarkRegression indicates an attempt to move a watermark to an
	// earlier timestamp than currently stored.
	ErrWatermarkRegression = errors.New("watermark regression rejected")
)
