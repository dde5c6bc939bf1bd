package csp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// nonceBytes is the amount of entropy in a nonce.
const nonceBytes = 16

// Shop holds the commerce domains that must be reachable from the page.
type Shop struct {
	// CheckoutDomain is the public checkout host, e.g. "checkout.example.com".
	CheckoutDomain string

	// StoreDomain is the store host, e.g. "example.myshopify.com".
	StoreDomain string
}

// Request holds the values of a policy that depend on the current request.
type Request struct {
	Shop Shop

	// FrameAncestors lists origins allowed to embed the page. It is only set
	// when preview mode is enabled for the session; when empty the
	// frame-ancestors directive is omitted.
	FrameAncestors []string
}

// Policy is the result of building a CSP for one request.
type Policy struct {
	// Nonce is the single-use token for inline scripts and styles.
	Nonce string

	// Header is the serialized Content-Security-Policy value.
	Header string
}

// NonceSource returns the CSP source expression for the nonce.
func (p Policy) NonceSource() string {
	return nonceSource(p.Nonce)
}

// NewNonce returns a fresh hex encoded nonce from crypto/rand.
func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Build validates req, generates a nonce and serializes the policy.
func Build(d *Directives, req Request) (Policy, error) {
	if err := req.Shop.validate(); err != nil {
		return Policy{}, err
	}

	nonce, err := NewNonce()
	if err != nil {
		return Policy{}, err
	}

	return Policy{
		Nonce:  nonce,
		Header: header(d, req, nonce),
	}, nil
}

func (s Shop) validate() error {
	if strings.TrimSpace(s.CheckoutDomain) == "" {
		return ErrMissingCheckoutDomain
	}
	if strings.TrimSpace(s.StoreDomain) == "" {
		return ErrMissingStoreDomain
	}
	return nil
}

// Builder issues policies from a fixed set of directives and shop domains.
// It is safe for concurrent use.
type Builder struct {
	directives   Directives
	shop         Shop
	studioOrigin string
}

// NewBuilder validates the process-wide configuration and returns a Builder.
// It fails when either shop domain is missing.
func NewBuilder(d Directives, shop Shop, studioOrigin string) (*Builder, error) {
	if err := shop.validate(); err != nil {
		return nil, err
	}
	return &Builder{
		directives:   d.Clone(),
		shop:         shop,
		studioOrigin: strings.TrimSpace(studioOrigin),
	}, nil
}

// Build issues the policy for one request. When preview is true the studio
// origin is allowed to frame the page.
func (b *Builder) Build(preview bool) (Policy, error) {
	req := Request{Shop: b.shop}
	if preview {
		if b.studioOrigin == "" {
			return Policy{}, ErrMissingStudioOrigin
		}
		req.FrameAncestors = []string{b.studioOrigin}
	}
	return Build(&b.directives, req)
}

// header serializes the merged directives with the given nonce.
func header(d *Directives, req Request, nonce string) string {
	n := nonceSource(nonce)

	values := map[string][]string{
		BaseURI:    {Self},
		DefaultSrc: merge([]string{Self, n, "https://cdn.shopify.com", "https://shopify.com"}, d.DefaultSrc),
		ScriptSrc:  merge([]string{Self, n, "https://cdn.shopify.com"}, d.ScriptSrc),
		StyleSrc:   merge([]string{Self, n, "https://cdn.shopify.com"}, d.StyleSrc),
		FontSrc:    merge(nil, d.FontSrc),
		MediaSrc:   merge(nil, d.MediaSrc),
		ImgSrc:     merge(nil, d.ImgSrc),
		ConnectSrc: merge([]string{
			Self,
			"https://monorail-edge.shopifysvc.com",
			origin(req.Shop.CheckoutDomain),
			origin(req.Shop.StoreDomain),
		}, d.ConnectSrc),
		FrameAncestors: merge(nil, req.FrameAncestors),
	}
	if d.ReportURI != "" {
		values[ReportURI] = []string{d.ReportURI}
	}

	parts := make([]string, 0, len(directiveOrder))
	for _, name := range directiveOrder {
		sources := values[name]
		if len(sources) == 0 {
			continue
		}
		parts = append(parts, name+" "+strings.Join(sources, " "))
	}
	return strings.Join(parts, "; ")
}

// merge appends extra to base, dropping blanks, duplicates and any nonce
// sources carried in extra.
func merge(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))

	add := func(src string, allowNonce bool) {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			return
		}
		if !allowNonce && strings.HasPrefix(src, "'nonce-") {
			return
		}
		seen[src] = true
		out = append(out, src)
	}

	for _, src := range base {
		add(src, true)
	}
	for _, src := range extra {
		add(src, false)
	}
	return out
}

// origin turns a bare domain into an https origin.
func origin(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

func nonceSource(nonce string) string {
	return "'nonce-" + nonce + "'"
}
