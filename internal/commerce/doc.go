// Package commerce is a client for the Shopify Storefront GraphQL API.
//
// Queries are opaque GraphQL strings sent with a locale-scoped variable set.
// Results of cacheable queries are kept in a cache.Store keyed by endpoint,
// query and variables.
package commerce
