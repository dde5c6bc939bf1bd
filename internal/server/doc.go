// Package server wires the storefront request core into a gin engine.
//
// Routes:
//
//	GET  /pages/:handle
//	GET  /:locale/pages/:handle
//	GET  /api/preview
//	GET  /api/preview/disable
//	POST /csp-report
//	GET  /metrics
//	GET  /healthz
package server
