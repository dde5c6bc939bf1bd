package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Env holds the environment variables read by the server.
type Env struct {
	StoreDomain          string `envconfig:"PUBLIC_STORE_DOMAIN"`
	CheckoutDomain       string `envconfig:"PUBLIC_CHECKOUT_DOMAIN"`
	StorefrontAPIToken   string `envconfig:"PUBLIC_STOREFRONT_API_TOKEN"`
	StorefrontAPIVersion string `envconfig:"PUBLIC_STOREFRONT_API_VERSION"`
	SanityProjectID      string `envconfig:"SANITY_PROJECT_ID"`
	SanityDataset        string `envconfig:"SANITY_DATASET"`
	SanityAPIVersion     string `envconfig:"SANITY_API_VERSION"`
	SanityAPIToken       string `envconfig:"SANITY_API_TOKEN"`
	SanityUseCDN         *bool  `envconfig:"SANITY_USE_CDN"`
	StudioOrigin         string `envconfig:"SANITY_STUDIO_ORIGIN"`
	PreviewSecret        string `envconfig:"SANITY_PREVIEW_SECRET"`
	SessionSecret        string `envconfig:"SESSION_SECRET"`
	ListenAddress        string `envconfig:"STOREFRONT_LISTEN_ADDRESS"`
	LogFormat            string `envconfig:"STOREFRONT_LOG_FORMAT"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return e, nil
}

// ApplyEnv overrides c with every variable set in e.
func (c *Config) ApplyEnv(e Env) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.StoreDomain, e.StoreDomain)
	set(&c.CheckoutDomain, e.CheckoutDomain)
	set(&c.StorefrontAPIToken, e.StorefrontAPIToken)
	set(&c.StorefrontAPIVersion, e.StorefrontAPIVersion)
	set(&c.SanityProjectID, e.SanityProjectID)
	set(&c.SanityDataset, e.SanityDataset)
	set(&c.SanityAPIVersion, e.SanityAPIVersion)
	set(&c.SanityAPIToken, e.SanityAPIToken)
	set(&c.StudioOrigin, e.StudioOrigin)
	set(&c.PreviewSecret, e.PreviewSecret)
	set(&c.SessionSecret, e.SessionSecret)
	set(&c.ListenAddress, e.ListenAddress)
	set(&c.LogFormat, e.LogFormat)
	if e.SanityUseCDN != nil {
		c.SanityUseCDN = *e.SanityUseCDN
	}
}
