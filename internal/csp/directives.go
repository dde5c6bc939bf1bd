package csp

import "slices"

// Directive names emitted by this package, in serialization order.
const (
	BaseURI        = "base-uri"
	DefaultSrc     = "default-src"
	ScriptSrc      = "script-src"
	StyleSrc       = "style-src"
	FontSrc        = "font-src"
	MediaSrc       = "media-src"
	ImgSrc         = "img-src"
	ConnectSrc     = "connect-src"
	FrameAncestors = "frame-ancestors"
	ReportURI      = "report-uri"
)

// directiveOrder is the fixed order directives appear in the header.
var directiveOrder = []string{
	BaseURI,
	DefaultSrc,
	ScriptSrc,
	StyleSrc,
	FontSrc,
	MediaSrc,
	ImgSrc,
	ConnectSrc,
	FrameAncestors,
	ReportURI,
}

// Source keywords.
const (
	Self = "'self'"
	None = "'none'"
)

// Directives holds the static, process-wide allow-lists. Values are appended
// after the built-in base sources of each directive.
//
// A Directives value must not be modified after it is handed to NewBuilder.
type Directives struct {
	DefaultSrc []string `yaml:"defaultSrc,omitempty"`
	ScriptSrc  []string `yaml:"scriptSrc,omitempty"`
	StyleSrc   []string `yaml:"styleSrc,omitempty"`
	FontSrc    []string `yaml:"fontSrc,omitempty"`
	MediaSrc   []string `yaml:"mediaSrc,omitempty"`
	ImgSrc     []string `yaml:"imgSrc,omitempty"`
	ConnectSrc []string `yaml:"connectSrc,omitempty"`

	// ReportURI, when set, is emitted as the report-uri directive.
	ReportURI string `yaml:"reportUri,omitempty"`
}

// DefaultDirectives returns the allow-lists used by the storefront when the
// configuration file does not override them.
func DefaultDirectives() Directives {
	return Directives{
		DefaultSrc: []string{"https://cdn.sanity.io"},
		ScriptSrc: []string{
			"https://code.jquery.com",
			"https://assets.livestory.io",
			"https://cdn.shopify.com",
			"http://localhost:3000",
		},
		FontSrc: []string{
			"https://fonts.gstatic.com",
			"https://assets.livestory.io",
		},
		StyleSrc: []string{
			"https://assets.livestory.io",
			"https://fonts.googleapis.com",
		},
		MediaSrc: []string{
			"https://mediastorage.livestory.io",
		},
		ImgSrc: []string{
			"http://localhost:3000",
			"https://cdn.shopify.com",
			"https://assets.livestory.io",
			"https://mediastorage.livestory.io",
		},
		ConnectSrc: []string{
			"https://api.livestory.io",
			"https://assets.livestory.io",
		},
	}
}

// Clone returns a deep copy of d.
func (d Directives) Clone() Directives {
	return Directives{
		DefaultSrc: slices.Clone(d.DefaultSrc),
		ScriptSrc:  slices.Clone(d.ScriptSrc),
		StyleSrc:   slices.Clone(d.StyleSrc),
		FontSrc:    slices.Clone(d.FontSrc),
		MediaSrc:   slices.Clone(d.MediaSrc),
		ImgSrc:     slices.Clone(d.ImgSrc),
		ConnectSrc: slices.Clone(d.ConnectSrc),
		ReportURI:  d.ReportURI,
	}
}
