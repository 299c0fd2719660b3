package model

import "errors"

// Workflow error taxonomy. Local-precondition errors are raised before any
// network call; remote errors revert the in-flight transition to its origin
// state. Match with errors.Is.
var (
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrMissingUsername      = errors.New("username is not cached")
	ErrValidationFailed     = errors.New("duration must not be empty")
	ErrNoCommits            = errors.New("no commits to generate a report from")
	ErrFetchFailed          = errors.New("failed to fetch commits")
	ErrGenerationFailed     = errors.New("failed to generate report")
	ErrGenerationIncomplete = errors.New("report response is incomplete")
	ErrNothingToExport      = errors.New("no report to export")
	ErrExportFailed         = errors.New("failed to export report")
)
