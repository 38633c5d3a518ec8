package importer

import "errors"

var (
	// ErrServiceRequired is returned when an importer is constructed without
	// a remote service.
	ErrServiceRequired = errors.New("remote service required")

	// ErrInvalidConcurrency is returned for a worker pool size below 1.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrServiceUnavailable is returned when the pre-run health check fails
	// after retries. Nothing has been mutated when this is returned.
	ErrServiceUnavailable = errors.New("service unavailable")
)
