// Package csp builds the Content-Security-Policy header for a storefront
// response and issues the per-request nonce bound to it.
//
// Static allow-lists are held in an immutable Directives value created once
// at process start. Each request calls Builder.Build, which generates a fresh
// nonce from crypto/rand and serializes the merged directive list. The same
// nonce must be written into every inline script and style tag of the page.
//
// NewBuilder refuses to start without both shop domains.
//
// ParseReport decodes the violation reports browsers send to report-uri.
package csp
