// Package respond turns a rendered document into an HTTP response, choosing
// between streaming and buffered delivery by client type.
package respond
