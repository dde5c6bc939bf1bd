package commerce

import (
	"errors"
	"strings"
)

// ErrMissingEndpoint is returned when neither a store domain nor an explicit
// endpoint is configured.
var ErrMissingEndpoint = errors.New("commerce client: store domain or endpoint is required")

// GraphQLError is returned when the API answers with a non-empty errors list.
type GraphQLError struct {
	Messages []string
}

// Error implements error.
func (e *GraphQLError) Error() string {
	return "commerce graphql error: " + strings.Join(e.Messages, "; ")
}
