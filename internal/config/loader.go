package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/storefront/internal/csp"
)

// DefaultConfigFile is the configuration file name searched for.
const DefaultConfigFile = ".storefront"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the layout of the .storefront YAML file. Every field is optional.
type File struct {
	Server struct {
		Listen          string        `yaml:"listen,omitempty"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
		DBDir           string        `yaml:"dbDir,omitempty"`
	} `yaml:"server,omitempty"`

	Log struct {
		Format     string   `yaml:"format,omitempty"`
		RedactKeys []string `yaml:"redactKeys,omitempty"`
	} `yaml:"log,omitempty"`

	Site struct {
		Name          string `yaml:"name,omitempty"`
		DefaultLocale string `yaml:"defaultLocale,omitempty"`
		FooterMenu    string `yaml:"footerMenu,omitempty"`
	} `yaml:"site,omitempty"`

	Backends struct {
		Timeout              time.Duration `yaml:"timeout,omitempty"`
		RetryMax             *int          `yaml:"retryMax,omitempty"`
		CacheSize            int           `yaml:"cacheSize,omitempty"`
		StorefrontAPIVersion string        `yaml:"storefrontApiVersion,omitempty"`
		SanityAPIVersion     string        `yaml:"sanityApiVersion,omitempty"`
		SanityUseCDN         *bool         `yaml:"sanityUseCdn,omitempty"`
	} `yaml:"backends,omitempty"`

	// CSP replaces the default allow-lists directive by directive.
	CSP *csp.Directives `yaml:"csp,omitempty"`

	Bots struct {
		Patterns []string `yaml:"patterns,omitempty"`
	} `yaml:"bots,omitempty"`
}

// LoadConfigFile parses the YAML file at path. A missing file yields
// ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile returns the first existing of: configPath, ./.storefront,
// ~/.storefront, $XDG_CONFIG_HOME/storefront/config.yaml. An explicit path
// that does not exist yields "".
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyFile overrides c with every value set in f.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v time.Duration) {
		if v != 0 {
			*dst = v
		}
	}

	str(&c.ListenAddress, f.Server.Listen)
	dur(&c.ShutdownTimeout, f.Server.ShutdownTimeout)
	str(&c.DBDir, f.Server.DBDir)
	str(&c.LogFormat, f.Log.Format)
	c.RedactKeys = append(c.RedactKeys, f.Log.RedactKeys...)
	str(&c.SiteName, f.Site.Name)
	str(&c.DefaultLocale, f.Site.DefaultLocale)
	str(&c.FooterMenuHandle, f.Site.FooterMenu)
	dur(&c.BackendTimeout, f.Backends.Timeout)
	if f.Backends.RetryMax != nil {
		c.RetryMax = *f.Backends.RetryMax
	}
	if f.Backends.CacheSize != 0 {
		c.CacheSize = f.Backends.CacheSize
	}
	str(&c.StorefrontAPIVersion, f.Backends.StorefrontAPIVersion)
	str(&c.SanityAPIVersion, f.Backends.SanityAPIVersion)
	if f.Backends.SanityUseCDN != nil {
		c.SanityUseCDN = *f.Backends.SanityUseCDN
	}
	if f.CSP != nil {
		c.Directives = mergeDirectives(c.Directives, *f.CSP)
	}
	c.BotPatterns = append(c.BotPatterns, f.Bots.Patterns...)
}

// mergeDirectives replaces each list of base that override sets.
func mergeDirectives(base, override csp.Directives) csp.Directives {
	out := base.Clone()
	pick := func(dst *[]string, v []string) {
		if v != nil {
			*dst = append([]string(nil), v...)
		}
	}
	pick(&out.DefaultSrc, override.DefaultSrc)
	pick(&out.ScriptSrc, override.ScriptSrc)
	pick(&out.StyleSrc, override.StyleSrc)
	pick(&out.FontSrc, override.FontSrc)
	pick(&out.MediaSrc, override.MediaSrc)
	pick(&out.ImgSrc, override.ImgSrc)
	pick(&out.ConnectSrc, override.ConnectSrc)
	if override.ReportURI != "" {
		out.ReportURI = override.ReportURI
	}
	return out
}

// Load builds a Config from defaults, the config file found by
// FindConfigFile(configPath) and the environment. An explicit configPath that
// does not exist is an error.
func Load(configPath string) (*Config, error) {
	c := NewConfig()
	c.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		c.ApplyFile(f)
		c.ConfigFilePath = path
	case configPath != "":
		return nil, ErrConfigNotFound
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(env)
	return c, nil
}
