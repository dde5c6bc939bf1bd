// Package cache maps storefront queries to cache policies and keeps a small
// in-process store of backend results that honors those policies.
//
// A Policy is attached per query, never per request. The selector For is a
// pure function of the query purpose; it performs no I/O and holds no state.
//
// Policies mirror the directives a storefront sends to its data backends:
//   - None: "no-store", the result is never reused
//   - Short: reused for one second, revalidated for nine more
//   - Long: reused for an hour, revalidated for 23 more hours
//   - Custom: caller supplied max-age and stale-while-revalidate
package cache
