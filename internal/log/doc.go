// Package log builds the storefront's slog loggers.
//
// Every logger is wrapped in a SecureHandler that masks storefront secrets
// before they reach the output: Storefront API tokens, Sanity API tokens,
// preview secrets, session cookies and authorization headers. Values are
// also matched by shape, so a token logged under an innocent key is still
// masked.
//
// Request handlers attach a request-scoped logger to the context:
//
//	ctx = log.WithContext(ctx, logger.With("request_id", id))
//	log.FromContext(ctx).Info("page rendered", "handle", handle)
package log
