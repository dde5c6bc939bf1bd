package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/storefront/internal/database"
)

func validConfig() *Config {
	c := NewConfig()
	c.StoreDomain = "shop.example.com"
	c.CheckoutDomain = "checkout.example.com"
	c.SanityProjectID = "abc123"
	c.SanityDataset = "production"
	return c
}

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("listens on port 3000", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != ":3000" {
			t.Errorf("ListenAddress = %q", cfg.ListenAddress)
		}
	})

	t.Run("backend defaults", func(t *testing.T) {
		t.Parallel()
		if cfg.BackendTimeout != 10*time.Second || cfg.RetryMax != 2 || cfg.CacheSize != 512 {
			t.Errorf("backend defaults = %v %d %d", cfg.BackendTimeout, cfg.RetryMax, cfg.CacheSize)
		}
	})

	t.Run("site defaults", func(t *testing.T) {
		t.Parallel()
		if cfg.SiteName != "Storefront" || cfg.DefaultLocale != "en-US" || cfg.FooterMenuHandle != "footer" {
			t.Errorf("site defaults = %q %q %q", cfg.SiteName, cfg.DefaultLocale, cfg.FooterMenuHandle)
		}
	})

	t.Run("content reads use the cdn", func(t *testing.T) {
		t.Parallel()
		if !cfg.SanityUseCDN {
			t.Error("SanityUseCDN = false")
		}
	})

	t.Run("csp allow-lists are populated", func(t *testing.T) {
		t.Parallel()
		if !slices.Contains(cfg.Directives.ScriptSrc, "https://cdn.shopify.com") {
			t.Errorf("ScriptSrc = %v", cfg.Directives.ScriptSrc)
		}
	})

	t.Run("database lives in the xdg data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DatabasePath() != filepath.Join(XDGDataDir(), database.DefaultFileName) {
			t.Errorf("DatabasePath() = %q", cfg.DatabasePath())
		}
		empty := NewConfig()
		empty.DBDir = ""
		if empty.DatabasePath() != "" {
			t.Errorf("DatabasePath() with empty DBDir = %q, want empty", empty.DatabasePath())
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "missing store domain", modify: func(c *Config) { c.StoreDomain = "" }, wantErr: ErrMissingStoreDomain},
		{name: "missing checkout domain", modify: func(c *Config) { c.CheckoutDomain = "" }, wantErr: ErrMissingCheckoutDomain},
		{name: "missing sanity project", modify: func(c *Config) { c.SanityProjectID = "" }, wantErr: ErrMissingSanityProject},
		{name: "missing sanity dataset", modify: func(c *Config) { c.SanityDataset = "" }, wantErr: ErrMissingSanityDataset},
		{name: "zero backend timeout", modify: func(c *Config) { c.BackendTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative shutdown timeout", modify: func(c *Config) { c.ShutdownTimeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "negative retry count", modify: func(c *Config) { c.RetryMax = -1 }, wantErr: ErrInvalidRetryMax},
		{name: "zero cache size", modify: func(c *Config) { c.CacheSize = 0 }, wantErr: ErrInvalidCacheSize},
		{name: "unknown log format", modify: func(c *Config) { c.LogFormat = "xml" }, wantErr: ErrInvalidLogFormat},
		{name: "bad locale", modify: func(c *Config) { c.DefaultLocale = "english" }, wantErr: ErrInvalidLocale},
		{name: "empty listen address", modify: func(c *Config) { c.ListenAddress = "" }, wantErr: ErrMissingListenAddress},
		{
			name:    "preview secret without studio origin",
			modify:  func(c *Config) { c.PreviewSecret = "s"; c.SanityAPIToken = "t"; c.SessionSecret = "k" },
			wantErr: ErrPreviewIncomplete,
		},
		{
			name: "complete preview configuration",
			modify: func(c *Config) {
				c.PreviewSecret = "s"
				c.SanityAPIToken = "t"
				c.SessionSecret = "k"
				c.StudioOrigin = "https://studio.example.com"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.modify(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestApplyEnv tests that set variables override and unset ones do not.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.ApplyEnv(Env{StoreDomain: "other.example.com", SanityUseCDN: new(bool)})

	if c.StoreDomain != "other.example.com" {
		t.Errorf("StoreDomain = %q", c.StoreDomain)
	}
	if c.CheckoutDomain != "checkout.example.com" {
		t.Errorf("CheckoutDomain = %q, want unchanged", c.CheckoutDomain)
	}
	if c.SanityUseCDN {
		t.Error("SanityUseCDN not overridden")
	}
}

// TestLoadEnv reads the documented variables.
func TestLoadEnv(t *testing.T) {
	t.Setenv("PUBLIC_STORE_DOMAIN", "env-shop.example.com")
	t.Setenv("PUBLIC_STOREFRONT_API_TOKEN", "tok")
	t.Setenv("SANITY_PREVIEW_SECRET", "preview")
	t.Setenv("SANITY_USE_CDN", "false")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if e.StoreDomain != "env-shop.example.com" || e.StorefrontAPIToken != "tok" || e.PreviewSecret != "preview" {
		t.Errorf("LoadEnv() = %+v", e)
	}
	if e.SanityUseCDN == nil || *e.SanityUseCDN {
		t.Errorf("SanityUseCDN = %v", e.SanityUseCDN)
	}
}

// TestLoadConfigFile tests YAML parsing and application.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("applies every section", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		data := `
server:
  listen: ":8080"
  shutdownTimeout: 30s
log:
  format: json
  redactKeys: [x-internal]
site:
  name: My Shop
  defaultLocale: fr-CA
  footerMenu: legal
backends:
  timeout: 3s
  retryMax: 0
  cacheSize: 64
  sanityUseCdn: false
csp:
  scriptSrc: ["https://scripts.example.com"]
  reportUri: /csp-report
bots:
  patterns: ["uptime-checker"]
`
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		c := NewConfig()
		c.ApplyFile(f)

		if c.ListenAddress != ":8080" || c.ShutdownTimeout != 30*time.Second {
			t.Errorf("server = %q %v", c.ListenAddress, c.ShutdownTimeout)
		}
		if c.LogFormat != "json" || !slices.Equal(c.RedactKeys, []string{"x-internal"}) {
			t.Errorf("log = %q %v", c.LogFormat, c.RedactKeys)
		}
		if c.SiteName != "My Shop" || c.DefaultLocale != "fr-CA" || c.FooterMenuHandle != "legal" {
			t.Errorf("site = %q %q %q", c.SiteName, c.DefaultLocale, c.FooterMenuHandle)
		}
		if c.BackendTimeout != 3*time.Second || c.RetryMax != 0 || c.CacheSize != 64 || c.SanityUseCDN {
			t.Errorf("backends = %v %d %d %v", c.BackendTimeout, c.RetryMax, c.CacheSize, c.SanityUseCDN)
		}
		if !slices.Equal(c.Directives.ScriptSrc, []string{"https://scripts.example.com"}) {
			t.Errorf("ScriptSrc = %v", c.Directives.ScriptSrc)
		}
		if !slices.Contains(c.Directives.ImgSrc, "https://cdn.shopify.com") {
			t.Errorf("ImgSrc lost its defaults: %v", c.Directives.ImgSrc)
		}
		if c.Directives.ReportURI != "/csp-report" {
			t.Errorf("ReportURI = %q", c.Directives.ReportURI)
		}
		if !slices.Equal(c.BotPatterns, []string{"uptime-checker"}) {
			t.Errorf("BotPatterns = %v", c.BotPatterns)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("site: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() accepted invalid yaml")
		}
	})

	t.Run("nil file is a no-op", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.ApplyFile(nil)
		if c.SiteName != DefaultSiteName {
			t.Errorf("SiteName = %q", c.SiteName)
		}
	})
}

// TestFindConfigFile tests explicit path handling.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(%q) = %q", path, got)
	}
	if got := FindConfigFile(path + ".missing"); got != "" {
		t.Errorf("FindConfigFile(missing) = %q, want empty", got)
	}
}

// TestLoad tests the full layering with an explicit file.
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("site:\n  name: File Shop\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PUBLIC_STORE_DOMAIN", "env.example.com")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.SiteName != "File Shop" || c.StoreDomain != "env.example.com" || c.ConfigFilePath != path {
		t.Errorf("Load() = %q %q %q", c.SiteName, c.StoreDomain, c.ConfigFilePath)
	}

	if _, err := Load(path + ".missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrConfigNotFound", err)
	}
}
