// Package main provides the storefront server CLI.
//
// Usage:
//
//	storefront serve
//	storefront violations --markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
