// Package backend holds the HTTP plumbing shared by the commerce and content
// clients. Failed calls surface as *StatusError.
package backend
