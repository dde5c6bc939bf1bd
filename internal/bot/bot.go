package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/x-way/crawlerdetect"
)

// headlessPatterns cover audit and scripting clients that render pages
// without being crawlers.
var headlessPatterns = []string{
	`headlesschrome`, `lighthouse`, `phantomjs`, `curl/`, `wget/`,
	`go-http-client`, `python-requests`, `python-urllib`, `node-fetch`,
}

// Classifier reports whether a user agent belongs to a bot.
type Classifier struct {
	re *regexp.Regexp
}

// New returns a classifier backed by the crawlerdetect list, the headless
// client patterns and extra (case-insensitive regular expressions).
func New(extra ...string) (*Classifier, error) {
	patterns := make([]string, 0, len(headlessPatterns)+len(extra))
	patterns = append(patterns, headlessPatterns...)
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid bot pattern %q: %w", p, err)
		}
		patterns = append(patterns, p)
	}
	re, err := regexp.Compile(`(?i)(?:` + strings.Join(patterns, `|`) + `)`)
	if err != nil {
		return nil, err
	}
	return &Classifier{re: re}, nil
}

// IsBot reports whether userAgent is automated. An empty user agent is not.
func (c *Classifier) IsBot(userAgent string) bool {
	if c == nil || userAgent == "" {
		return false
	}
	return crawlerdetect.IsCrawler(userAgent) || c.re.MatchString(userAgent)
}
