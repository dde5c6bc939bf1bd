package csp

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the parent of every configuration error returned by
// this package. Use errors.Is(err, ErrConfiguration) to detect them.
var ErrConfiguration = errors.New("csp configuration error")

var (
	// ErrMissingCheckoutDomain is returned when the checkout domain is empty.
	ErrMissingCheckoutDomain = fmt.Errorf("%w: checkout domain is required", ErrConfiguration)

	// ErrMissingStoreDomain is returned when the store domain is empty.
	ErrMissingStoreDomain = fmt.Errorf("%w: store domain is required", ErrConfiguration)

	// ErrMissingStudioOrigin is returned when preview mode is requested but no
	// studio origin is configured.
	ErrMissingStudioOrigin = fmt.Errorf("%w: studio origin is required in preview mode", ErrConfiguration)
)

// ErrInvalidReport is returned when a violation report body cannot be decoded.
var ErrInvalidReport = errors.New("invalid csp violation report")
