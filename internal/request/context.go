package request

import (
	"context"
	"errors"
	"net/url"

	"github.com/nao1215/storefront/internal/cache"
	"github.com/nao1215/storefront/internal/commerce"
	"github.com/nao1215/storefront/internal/content"
	"github.com/nao1215/storefront/internal/i18n"
)

// Commerce is the commerce backend used by page loaders.
type Commerce interface {
	Page(ctx context.Context, vars commerce.PageVariables, ann cache.Annotation) (*commerce.Page, error)
	Menu(ctx context.Context, vars commerce.MenuVariables, ann cache.Annotation) (*commerce.Menu, error)
}

// Content is the content backend used by page loaders.
type Content interface {
	Page(ctx context.Context, params content.PageParams, opts content.QueryOptions) (content.Document, error)
}

var (
	// ErrMissingCommerce is returned when a Context is built without a commerce backend.
	ErrMissingCommerce = errors.New("request context: commerce backend is required")

	// ErrMissingContent is returned when a Context is built without a content backend.
	ErrMissingContent = errors.New("request context: content backend is required")
)

// Env is the deployment configuration visible to a request.
type Env struct {
	StoreDomain    string
	CheckoutDomain string
	StudioOrigin   string
}

// Params are the inputs of New.
type Params struct {
	Env      Env
	Handle   string
	Locale   i18n.Locale
	Preview  bool
	URL      *url.URL
	Commerce Commerce
	Content  Content
}

// Context is read-only after New returns.
type Context struct {
	env      Env
	handle   string
	locale   i18n.Locale
	preview  bool
	url      url.URL
	commerce Commerce
	content  Content
}

// New builds a Context. The URL is copied.
func New(p Params) (*Context, error) {
	if p.Commerce == nil {
		return nil, ErrMissingCommerce
	}
	if p.Content == nil {
		return nil, ErrMissingContent
	}
	c := &Context{
		env:      p.Env,
		handle:   p.Handle,
		locale:   p.Locale,
		preview:  p.Preview,
		commerce: p.Commerce,
		content:  p.Content,
	}
	if c.locale == (i18n.Locale{}) {
		c.locale = i18n.Default()
	}
	if p.URL != nil {
		c.url = *p.URL
	}
	return c, nil
}

// Env returns the deployment configuration.
func (c *Context) Env() Env { return c.env }

// Handle returns the requested page handle.
func (c *Context) Handle() string { return c.handle }

// Locale returns the request locale.
func (c *Context) Locale() i18n.Locale { return c.locale }

// Preview reports whether preview mode was granted for this request.
func (c *Context) Preview() bool { return c.preview }

// URL returns a copy of the request URL.
func (c *Context) URL() *url.URL {
	u := c.url
	return &u
}

// Commerce returns the commerce backend.
func (c *Context) Commerce() Commerce { return c.commerce }

// Content returns the content backend.
func (c *Context) Content() Content { return c.content }
