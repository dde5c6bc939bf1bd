package i18n

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalidLocale is returned when a locale string cannot be parsed.
var ErrInvalidLocale = errors.New("invalid locale")

// Locale identifies the language and country of a storefront page.
type Locale struct {
	// Language is the upper-case ISO 639 language code, e.g. "EN".
	Language string

	// Country is the upper-case ISO 3166 country code, e.g. "US".
	Country string

	// PathPrefix is the URL prefix that selected this locale, e.g. "/en-us".
	// It is empty for the default locale.
	PathPrefix string
}

// Default returns the en-US locale.
func Default() Locale {
	return Locale{Language: "EN", Country: "US"}
}

// Parse parses "en-US", "en-us" or "en_US" into a Locale without a path prefix.
func Parse(s string) (Locale, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(parts) != 2 {
		return Locale{}, fmt.Errorf("%w: %q", ErrInvalidLocale, s)
	}

	base, err := language.ParseBase(parts[0])
	if err != nil {
		return Locale{}, fmt.Errorf("%w: %q: %v", ErrInvalidLocale, s, err)
	}
	region, err := language.ParseRegion(parts[1])
	if err != nil || !region.IsCountry() {
		return Locale{}, fmt.Errorf("%w: %q: not a country", ErrInvalidLocale, s)
	}

	return Locale{
		Language: strings.ToUpper(base.String()),
		Country:  region.String(),
	}, nil
}

// FromPathSegment resolves the locale selected by the first URL path
// segment, such as "fr-ca". It returns false if the segment is not a locale.
func FromPathSegment(segment string) (Locale, bool) {
	if len(segment) != 5 || segment[2] != '-' {
		return Locale{}, false
	}
	l, err := Parse(segment)
	if err != nil {
		return Locale{}, false
	}
	l.PathPrefix = "/" + strings.ToLower(segment)
	return l, true
}

// String returns the BCP 47 form, e.g. "en-US".
func (l Locale) String() string {
	return strings.ToLower(l.Language) + "-" + l.Country
}

// Tag returns the language tag of the locale.
func (l Locale) Tag() language.Tag {
	return language.Make(l.String())
}

// ContentLanguage returns the language as sent to the content backend.
func (l Locale) ContentLanguage() string {
	return strings.ToLower(l.Language)
}
