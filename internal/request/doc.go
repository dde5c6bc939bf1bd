// Package request holds the immutable per-request context handed to loaders
// and views.
package request
