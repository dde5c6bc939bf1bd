// Package render streams an HTML document as a sequence of chunks.
//
// The shell (head and every synchronous part of the body) is emitted as the
// first chunk. Suspense boundaries emit their fallback in the shell and are
// resolved in the background; each resolved boundary is appended as a hidden
// segment plus an inline script that swaps it into place, in completion
// order. Every inline script and style carries the request nonce.
package render
