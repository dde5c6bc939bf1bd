package server

import "errors"

var (
	// ErrMissingConfig is returned by New without a configuration.
	ErrMissingConfig = errors.New("server: configuration is required")

	// ErrMissingBackends is returned by New when either backend client is nil.
	ErrMissingBackends = errors.New("server: commerce and content backends are required")
)
