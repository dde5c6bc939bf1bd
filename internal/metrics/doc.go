// Package metrics exposes Prometheus collectors for the storefront.
//
// A Registry satisfies the observer interfaces of the backend, loader and
// respond packages, so one value is handed to each of them at startup.
package metrics
