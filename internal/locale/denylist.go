package locale

import (
	"net/url"
	"strings"
)

// deniedHosts are sites linked from the front page that are not news articles.
var deniedHosts = []string{"theathletic.com"}

// deniedPaths are non-article sections of the news site.
var deniedPaths = []string{"/video/", "/live/", "/interactive/", "/explain/", "/wirecutter"}

// Denied reports whether link points at content the crawler must not queue:
// another property, or a video, live, interactive, explainer or product
// review section.
func Denied(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for _, h := range deniedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	if host != "nytimes.com" {
		return false
	}
	for _, p := range deniedPaths {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}
