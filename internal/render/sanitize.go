package render

import "github.com/microcosm-cc/bluemonday"

// policy is the allow-list applied to untrusted markup. It is safe for
// concurrent use.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	return p
}

// Sanitize reduces an HTML fragment to user-generated-content markup:
// scripts, event handlers, inline styles and script URLs are removed.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}
