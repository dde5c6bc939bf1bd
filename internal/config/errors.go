package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrMissingStoreDomain is returned when PUBLIC_STORE_DOMAIN is not set.
	ErrMissingStoreDomain = errors.New("missing store domain: set PUBLIC_STORE_DOMAIN")

	// ErrMissingCheckoutDomain is returned when PUBLIC_CHECKOUT_DOMAIN is not set.
	ErrMissingCheckoutDomain = errors.New("missing checkout domain: set PUBLIC_CHECKOUT_DOMAIN")

	// ErrMissingSanityProject is returned when SANITY_PROJECT_ID is not set.
	ErrMissingSanityProject = errors.New("missing content project: set SANITY_PROJECT_ID")

	// ErrMissingSanityDataset is returned when SANITY_DATASET is not set.
	ErrMissingSanityDataset = errors.New("missing content dataset: set SANITY_DATASET")

	// ErrPreviewIncomplete is returned when a preview secret is configured
	// without the studio origin, API token and session secret preview needs.
	ErrPreviewIncomplete = errors.New("incomplete preview configuration: SANITY_PREVIEW_SECRET requires SANITY_STUDIO_ORIGIN, SANITY_API_TOKEN and SESSION_SECRET")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryMax is returned when the retry count is negative.
	ErrInvalidRetryMax = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidCacheSize is returned when the cache size is not positive.
	ErrInvalidCacheSize = errors.New("invalid cache size: must be positive")

	// ErrInvalidLocale is returned when the default locale cannot be parsed.
	ErrInvalidLocale = errors.New("invalid default locale: want language-COUNTRY, e.g. en-US")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrMissingListenAddress is returned when no listen address is set.
	ErrMissingListenAddress = errors.New("missing listen address")
)
