package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every masked value.
const MaskValue = "***REDACTED***"

// maskedKeys are attribute keys whose values are always masked.
var maskedKeys = map[string]bool{
	"authorization":                     true,
	"proxy-authorization":               true,
	"cookie":                            true,
	"set-cookie":                        true,
	"x-shopify-storefront-access-token": true,
	"public_storefront_api_token":       true,
	"storefront_api_token":              true,
	"access_token":                      true,
	"sanity_api_token":                  true,
	"sanity_preview_secret":             true,
	"preview_secret":                    true,
	"session_secret":                    true,
	"session":                           true,
	"sid":                               true,
}

// maskedKeywords mask any key containing them.
var maskedKeywords = []string{"token", "secret", "password", "passwd", "credential", "cookie"}

// maskedValues match secrets by shape.
var maskedValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+\S+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Shopify admin, storefront and custom app tokens.
	regexp.MustCompile(`^shp(at|ca|pa|ss|ua)_[A-Fa-f0-9]{20,}$`),
	// Sanity robot and personal tokens.
	regexp.MustCompile(`^sk[A-Za-z0-9]{60,}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler masks sensitive attributes before delegating to another
// handler.
type SecureHandler struct {
	next  slog.Handler
	extra map[string]bool
}

// NewSecureHandler wraps next. A nil next uses the default handler.
// extraKeys are masked in addition to the built-in keys.
func NewSecureHandler(next slog.Handler, extraKeys ...string) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	h := &SecureHandler{next: next}
	if len(extraKeys) > 0 {
		h.extra = make(map[string]bool, len(extraKeys))
		for _, k := range extraKeys {
			h.extra[strings.ToLower(k)] = true
		}
	}
	return h
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &SecureHandler{next: h.next.WithAttrs(masked), extra: h.extra}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name), extra: h.extra}
}

func (h *SecureHandler) mask(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, g := range group {
			masked[i] = h.mask(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if h.sensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && sensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func (h *SecureHandler) sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if maskedKeys[k] || h.extra[k] {
		return true
	}
	for _, kw := range maskedKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func sensitiveValue(v string) bool {
	for _, re := range maskedValues {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// level returns Debug when verbose and Info otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewSecureLogger returns a masking text logger writing to w.
func NewSecureLogger(w io.Writer, verbose bool, extraKeys ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)}), extraKeys...))
}

// NewSecureJSONLogger returns a masking JSON logger writing to w.
func NewSecureJSONLogger(w io.Writer, verbose bool, extraKeys ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)}), extraKeys...))
}

// New returns NewSecureJSONLogger when format is "json" and NewSecureLogger
// otherwise.
func New(w io.Writer, format string, verbose bool, extraKeys ...string) *slog.Logger {
	if strings.EqualFold(format, "json") {
		return NewSecureJSONLogger(w, verbose, extraKeys...)
	}
	return NewSecureLogger(w, verbose, extraKeys...)
}
