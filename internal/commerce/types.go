package commerce

import (
	"net/url"
	"strings"
)

// SEO holds search engine metadata of a page.
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Page is a storefront page record.
type Page struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	SEO    SEO    `json:"seo"`
}

// PageVariables are the variables of PageQuery.
type PageVariables struct {
	Language string
	Country  string
	Handle   string
}

func (v PageVariables) toMap() map[string]any {
	return map[string]any{
		"language": v.Language,
		"country":  v.Country,
		"handle":   v.Handle,
	}
}

// MenuItem is one entry of a navigation menu.
type MenuItem struct {
	ID         string   `json:"id"`
	ResourceID string   `json:"resourceId"`
	Tags       []string `json:"tags"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	URL        string   `json:"url"`
}

// RelativeURL returns the item path when its URL points at one of the
// storefront's own domains, and the URL unchanged otherwise.
func (m MenuItem) RelativeURL(domains ...string) string {
	u, err := url.Parse(m.URL)
	if err != nil || u.Host == "" {
		return m.URL
	}
	for _, d := range domains {
		if d != "" && strings.EqualFold(u.Host, d) {
			rel := u.EscapedPath()
			if rel == "" {
				rel = "/"
			}
			if u.RawQuery != "" {
				rel += "?" + u.RawQuery
			}
			return rel
		}
	}
	return m.URL
}

// Menu is a navigation menu.
type Menu struct {
	ID    string     `json:"id"`
	Items []MenuItem `json:"items"`
}

// MenuVariables are the variables of FooterQuery.
type MenuVariables struct {
	Language string
	Country  string
	Handle   string
}

func (v MenuVariables) toMap() map[string]any {
	return map[string]any{
		"language":         v.Language,
		"country":          v.Country,
		"footerMenuHandle": v.Handle,
	}
}
