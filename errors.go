package chatter

import "errors"

var (
	// ErrNoDataDir is returned when the pipeline is run without a data
	// directory.
	ErrNoDataDir = errors.New("chatter: data directory not configured")

	// ErrDataDirMissing is returned when the configured data directory
	// does not exist.
	ErrDataDirMissing = errors.New("chatter: data directory does not exist")
)
