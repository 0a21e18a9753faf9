package classify

import (
	"regexp"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

var urlPattern = regexp.MustCompile(`(https?://[^\s<>")\]]+|www\.[^\s<>")\]]+)`)

// DefaultPlatformHosts are the chat platform's own short-link domains.
var DefaultPlatformHosts = []string{"t.me", "telegram.me"}

// LinkExtractor finds the first usable link in free text.
type LinkExtractor struct {
	platformHosts []string
}

// NewLinkExtractor returns an extractor that skips links to the given hosts
// and their subdomains. A nil slice uses DefaultPlatformHosts.
func NewLinkExtractor(platformHosts []string) *LinkExtractor {
	if platformHosts == nil {
		platformHosts = DefaultPlatformHosts
	}
	hosts := make([]string, 0, len(platformHosts))
	for _, h := range platformHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &LinkExtractor{platformHosts: hosts}
}

// Extract returns the first link in reading order with trailing punctuation
// trimmed, or record.URLAbsent when none qualifies.
func (e *LinkExtractor) Extract(text string) string {
	for _, m := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(m, ").,;]")
		if u == "" || e.isPlatformLink(u) {
			continue
		}
		return u
	}
	return record.URLAbsent
}

func (e *LinkExtractor) isPlatformLink(u string) bool {
	host := hostOf(u)
	for _, h := range e.platformHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// hostOf returns the lowercased host of a scheme-qualified or www. link,
// without port or userinfo.
func hostOf(u string) string {
	u = strings.ToLower(u)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "@"); i >= 0 {
		u = u[i+1:]
	}
	if i := strings.LastIndex(u, ":"); i >= 0 {
		u = u[:i]
	}
	return u
}
