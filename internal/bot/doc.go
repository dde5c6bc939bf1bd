// Package bot classifies user agents as automated clients. Crawlers are
// recognised through the crawlerdetect list, extended with headless
// clients and configured patterns.
package bot
