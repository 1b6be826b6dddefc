package pricewatch

import (
	"net/url"
	"strings"
)

// Canonicalizer normalizes and classifies URLs for one target site. The
// canonical form (no fragment, no query, no trailing slash, absolute) is the
// identity key everywhere downstream; every set membership test and store
// lookup goes through Canonicalize first.
type Canonicalizer struct {
	base    *url.URL
	baseStr string
	profile *SiteProfile
}

func NewCanonicalizer(baseUrl string, profile *SiteProfile) (*Canonicalizer, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseUrl, "/"))
	if err != nil {
		return nil, err
	}
	return &Canonicalizer{
		base:    parsed,
		baseStr: strings.TrimSuffix(baseUrl, "/"),
		profile: profile,
	}, nil
}

// BaseUrl returns the canonical base URL of the site.
func (c *Canonicalizer) BaseUrl() string {
	return c.baseStr
}

// Canonicalize resolves raw against the base URL, strips fragment and query
// string and removes the trailing slash. Returns "" for unparseable input.
func (c *Canonicalizer) Canonicalize(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	resolved := c.base.ResolveReference(parsed)
	resolved.Fragment = ""
	resolved.RawQuery = ""
	return strings.TrimSuffix(resolved.String(), "/")
}

// IsSameOrigin reports whether u lives on the same scheme and host as the
// base URL.
func (c *Canonicalizer) IsSameOrigin(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return parsed.Scheme == c.base.Scheme && parsed.Host == c.base.Host
}

// IsExcluded matches the fixed denylist of path substrings (login, cart,
// policy pages and friends). Any match disqualifies the URL from discovery.
func (c *Canonicalizer) IsExcluded(u string) bool {
	lower := strings.ToLower(u)
	for _, substr := range c.profile.ExcludedSubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

// IsProductUrl matches the site-specific product URL suffix pattern.
func (c *Canonicalizer) IsProductUrl(u string) bool {
	return c.profile.ProductUrlPattern.MatchString(u)
}

// CategoryName derives the human-readable category path from a category URL.
func (c *Canonicalizer) CategoryName(categoryUrl string) string {
	name := strings.TrimPrefix(categoryUrl, c.baseStr)
	if name == "" {
		return "/"
	}
	return name
}

// PathSegments returns the number of path segments below the base URL.
func (c *Canonicalizer) PathSegments(u string) int {
	rest := strings.TrimPrefix(u, c.baseStr)
	count := 0
	for _, part := range strings.Split(rest, "/") {
		if part != "" {
			count++
		}
	}
	return count
}
