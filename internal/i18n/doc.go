// Package i18n resolves the storefront locale of a request.
//
// A locale only affects the variables sent to the backends: the commerce
// query takes an upper-case language and country, and the content query takes
// the lower-case language.
package i18n
