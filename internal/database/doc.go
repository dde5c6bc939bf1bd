// Package database stores CSP violation reports in SQLite.
//
// Reports are grouped by fingerprint: a repeated violation increments the
// count and last-seen time of its existing row instead of adding a new one.
// The database is a single file opened through modernc.org/sqlite, with WAL
// journaling and one connection.
package database
