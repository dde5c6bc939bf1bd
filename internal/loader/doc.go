// Package loader fetches page data from the commerce and content backends.
//
// The critical phase runs both page queries concurrently and must succeed
// before anything is rendered. The deferred phase starts best-effort queries
// whose results are streamed into the page later; a failed deferred query
// resolves to absent and never fails the request.
package loader
