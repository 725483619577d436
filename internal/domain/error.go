package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrClaimLost       = errors.New("job already claimed by another worker")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")

	// Extraction and merge failures. Both are absorbed close to where they
	// happen and surface only as appended job error lines.
	ErrExtractionFailure      = errors.New("extraction call failed")
	ErrMergeDependencyFailure = errors.New("merge dependency call failed")

	// Infrastructure errors
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
