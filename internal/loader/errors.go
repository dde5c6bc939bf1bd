package loader

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingHandle is returned when the request carries no page handle.
	ErrMissingHandle = errors.New("missing page handle")

	// ErrNotFound is returned when either backend has no record for the handle.
	ErrNotFound = errors.New("page not found")
)

// RedirectError asks the caller to redirect instead of rendering.
type RedirectError struct {
	Location string
	Status   int
}

// Error implements error.
func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect %d to %s", e.Status, e.Location)
}

func newRedirect(location string) *RedirectError {
	return &RedirectError{Location: location, Status: http.StatusFound}
}
