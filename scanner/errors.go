package scanner

import "errors"

var (
	// ErrScan indicates the root or one of its children could not be read.
	ErrScan = errors.New("scan failed")

	// ErrNotDirectory indicates the root path does not exist or is not a
	// directory.
	ErrNotDirectory = errors.New("root is not a directory")

	// ErrNoMatchingFiles indicates no base directory contained any file
	// passing the extension filter.
	ErrNoMatchingFiles = errors.New("no matching files found")
)
