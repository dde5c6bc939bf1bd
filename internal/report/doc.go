// Package report writes CSP violation summaries as plain text, JSON or
// Markdown.
package report
