package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/storefront/internal/csp"
	"github.com/nao1215/storefront/internal/database"
	"github.com/nao1215/storefront/internal/i18n"
)

// Defaults.
const (
	// AppName names the XDG directories.
	AppName = "storefront"

	DefaultListenAddress   = ":3000"
	DefaultLogFormat       = "text"
	DefaultSiteName        = "Storefront"
	DefaultLocale          = "en-US"
	DefaultFooterMenu      = "footer"
	DefaultBackendTimeout  = 10 * time.Second
	DefaultRetryMax        = 2
	DefaultCacheSize       = 512
	DefaultShutdownTimeout = 15 * time.Second
	DefaultStorefrontAPI   = "2024-10"
	DefaultSanityAPI       = "2023-03-20"

)

// Config is the full server configuration.
type Config struct {
	// ListenAddress is the HTTP listen address in host:port form.
	ListenAddress string

	// Verbose switches logging to debug level.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// RedactKeys are extra log attribute keys to mask.
	RedactKeys []string

	// ConfigFilePath is the explicit .storefront file, if any.
	ConfigFilePath string

	// SiteName prefixes every page title.
	SiteName string

	// DefaultLocale applies to routes without a locale prefix.
	DefaultLocale string

	// FooterMenuHandle names the commerce menu streamed into the footer.
	FooterMenuHandle string

	// Directives are the CSP allow-lists.
	Directives csp.Directives

	// BotPatterns extend the built-in bot user agent patterns.
	BotPatterns []string

	BackendTimeout  time.Duration
	RetryMax        int
	CacheSize       int
	ShutdownTimeout time.Duration

	// DBDir holds the CSP violation database. Empty disables reporting.
	DBDir string

	// Commerce backend.
	StoreDomain          string
	CheckoutDomain       string
	StorefrontAPIToken   string
	StorefrontAPIVersion string

	// Content backend.
	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityAPIToken   string
	SanityUseCDN     bool

	// Preview.
	StudioOrigin  string
	PreviewSecret string
	SessionSecret string
}

// NewConfig returns a Config holding the defaults.
func NewConfig() *Config {
	return &Config{
		ListenAddress:        DefaultListenAddress,
		LogFormat:            DefaultLogFormat,
		SiteName:             DefaultSiteName,
		DefaultLocale:        DefaultLocale,
		FooterMenuHandle:     DefaultFooterMenu,
		Directives:           csp.DefaultDirectives(),
		BackendTimeout:       DefaultBackendTimeout,
		RetryMax:             DefaultRetryMax,
		CacheSize:            DefaultCacheSize,
		ShutdownTimeout:      DefaultShutdownTimeout,
		DBDir:                XDGDataDir(),
		StorefrontAPIVersion: DefaultStorefrontAPI,
		SanityAPIVersion:     DefaultSanityAPI,
		SanityUseCDN:         true,
	}
}

// XDGDataDir returns the storefront data directory, e.g. ~/.local/share/storefront.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the storefront config directory, e.g. ~/.config/storefront.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabasePath returns the violation database path, or "" when DBDir is empty.
func (c *Config) DatabasePath() string {
	if c.DBDir == "" {
		return ""
	}
	return filepath.Join(c.DBDir, database.DefaultFileName)
}

// PreviewEnabled reports whether the preview gate is configured.
func (c *Config) PreviewEnabled() bool {
	return c.PreviewSecret != ""
}

// Locale parses DefaultLocale.
func (c *Config) Locale() (i18n.Locale, error) {
	l, err := i18n.Parse(c.DefaultLocale)
	if err != nil {
		return i18n.Locale{}, ErrInvalidLocale
	}
	return l, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ListenAddress == "":
		return ErrMissingListenAddress
	case c.StoreDomain == "":
		return ErrMissingStoreDomain
	case c.CheckoutDomain == "":
		return ErrMissingCheckoutDomain
	case c.SanityProjectID == "":
		return ErrMissingSanityProject
	case c.SanityDataset == "":
		return ErrMissingSanityDataset
	case c.BackendTimeout <= 0 || c.ShutdownTimeout <= 0:
		return ErrInvalidTimeout
	case c.RetryMax < 0:
		return ErrInvalidRetryMax
	case c.CacheSize <= 0:
		return ErrInvalidCacheSize
	case c.LogFormat != "text" && c.LogFormat != "json":
		return ErrInvalidLogFormat
	}
	if _, err := c.Locale(); err != nil {
		return err
	}
	if c.PreviewEnabled() && (c.StudioOrigin == "" || c.SanityAPIToken == "" || c.SessionSecret == "") {
		return ErrPreviewIncomplete
	}
	return nil
}
