package cache

import (
	"strconv"
	"strings"
	"time"
)

// Mode identifies the kind of caching a Policy allows.
type Mode int

const (
	// ModeNone disables caching entirely.
	ModeNone Mode = iota

	// ModeShort allows a result to be reused for a very short window.
	ModeShort

	// ModeLong allows a result to be reused for about an hour.
	ModeLong

	// ModeCustom uses caller supplied durations.
	ModeCustom
)

// String returns the lower-case name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeShort:
		return "short"
	case ModeLong:
		return "long"
	case ModeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Durations used by the predefined policies.
const (
	shortMaxAge               = 1 * time.Second
	shortStaleWhileRevalidate = 9 * time.Second
	longMaxAge                = time.Hour
	longStaleWhileRevalidate  = 23 * time.Hour
)

// Policy is a cache directive for a single backend query.
type Policy struct {
	// Mode is the kind of caching allowed.
	Mode Mode

	// MaxAge is how long a stored result is considered fresh.
	MaxAge time.Duration

	// StaleWhileRevalidate is how long past MaxAge a stale result may still
	// be served while it is refreshed. Only emitted in the header.
	StaleWhileRevalidate time.Duration
}

// None returns the policy that forbids reuse of a result.
func None() Policy {
	return Policy{Mode: ModeNone}
}

// Short returns the short-lived policy.
func Short() Policy {
	return Policy{
		Mode:                 ModeShort,
		MaxAge:               shortMaxAge,
		StaleWhileRevalidate: shortStaleWhileRevalidate,
	}
}

// Long returns the long-lived policy.
func Long() Policy {
	return Policy{
		Mode:                 ModeLong,
		MaxAge:               longMaxAge,
		StaleWhileRevalidate: longStaleWhileRevalidate,
	}
}

// Custom returns a policy with the given durations.
// Negative durations are clamped to zero.
func Custom(maxAge, staleWhileRevalidate time.Duration) Policy {
	return Policy{
		Mode:                 ModeCustom,
		MaxAge:               max(maxAge, 0),
		StaleWhileRevalidate: max(staleWhileRevalidate, 0),
	}
}

// Cacheable reports whether a result fetched under this policy may be stored.
func (p Policy) Cacheable() bool {
	return p.Mode != ModeNone && p.MaxAge > 0
}

// Header returns the Cache-Control value for the policy.
func (p Policy) Header() string {
	if !p.Cacheable() {
		return "no-store"
	}

	parts := []string{"public", "max-age=" + seconds(p.MaxAge)}
	if p.StaleWhileRevalidate > 0 {
		parts = append(parts, "stale-while-revalidate="+seconds(p.StaleWhileRevalidate))
	}
	return strings.Join(parts, ", ")
}

// String returns a compact description used in debug logs.
func (p Policy) String() string {
	return p.Mode.String() + " (" + p.Header() + ")"
}

func seconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

// Purpose names the logical reason a query is issued.
type Purpose string

const (
	// PurposeContentPage is the CMS page document. It must always be fresh so
	// editors previewing drafts see their changes immediately.
	PurposeContentPage Purpose = "content-page"

	// PurposeCommercePage is the commerce page record.
	PurposeCommercePage Purpose = "commerce-page"

	// PurposeFooterMenu is the footer navigation menu.
	PurposeFooterMenu Purpose = "footer-menu"

	// PurposePreview is any query issued while preview mode is enabled.
	PurposePreview Purpose = "preview"
)

// For returns the cache policy for a query purpose.
// Unknown purposes get None.
func For(purpose Purpose) Policy {
	switch purpose {
	case PurposeCommercePage:
		return Short()
	case PurposeFooterMenu:
		return Long()
	case PurposeContentPage, PurposePreview:
		return None()
	default:
		return None()
	}
}

// Annotation is the cache metadata attached to an outgoing query.
type Annotation struct {
	// Policy is the cache directive for the query.
	Policy Policy

	// DisplayName labels the query in debug output, e.g. "query Page".
	DisplayName string

	// Tag groups related queries for invalidation and logging.
	Tag string
}

// Annotate builds an Annotation using the policy For(purpose).
func Annotate(purpose Purpose, displayName, tag string) Annotation {
	return Annotation{
		Policy:      For(purpose),
		DisplayName: displayName,
		Tag:         tag,
	}
}
