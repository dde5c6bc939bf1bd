// Package content is a client for the Sanity query API.
//
// Queries are GROQ strings with named parameters. Published documents are
// read from the API CDN; preview reads go to the live API with a token and the
// drafts perspective.
package content
