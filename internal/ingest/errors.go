package ingest

import "errors"

var (
	// ErrIntegrity signals a corrupt store: more than one project with the same
	// name or more than one release with the same version.
	ErrIntegrity = errors.New("store integrity error")
	// ErrFileTooLarge is returned when an artifact exceeds the per-file limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrProjectTooLarge is returned when accepting an artifact would push the
	// project past its size limit.
	ErrProjectTooLarge = errors.New("project too large")
	// ErrFileExists is returned when the file name is already taken by any
	// project.
	ErrFileExists = errors.New("file already exists")
)
